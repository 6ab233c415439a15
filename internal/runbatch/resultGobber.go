// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"encoding/gob"
	"errors"
	"io"
	"time"
)

var (
	// ErrWriteGob is returned when writing the results to a binary format fails.
	ErrWriteGob = errors.New("failed to write binary results")
	// ErrReadGob is returned when binary results cannot be decoded.
	ErrReadGob = errors.New("failed to read binary results")
)

// savedResult is the gob form of Result. Errors are kept as their messages.
type savedResult struct {
	Label    string
	Target   string
	Status   ResultStatus
	Error    string
	Output   []string
	Duration time.Duration
	Children []savedResult
}

func toSaved(r *Result) savedResult {
	s := savedResult{
		Label:    r.Label,
		Target:   r.Target,
		Status:   r.Status,
		Output:   r.Output,
		Duration: r.Duration,
	}

	if r.Error != nil {
		s.Error = r.Error.Error()
	}

	for _, c := range r.Children {
		s.Children = append(s.Children, toSaved(c))
	}

	return s
}

func (s savedResult) result() *Result {
	r := &Result{
		Label:    s.Label,
		Target:   s.Target,
		Status:   s.Status,
		Output:   s.Output,
		Duration: s.Duration,
	}

	if s.Error != "" {
		r.Error = errors.New(s.Error)
	}

	for _, c := range s.Children {
		r.Children = append(r.Children, c.result())
	}

	return r
}

// WriteBinary saves the results to w so that ReadBinary can display them later.
func WriteBinary(w io.Writer, results Results) error {
	saved := make([]savedResult, len(results))
	for i, r := range results {
		saved[i] = toSaved(r)
	}

	if err := gob.NewEncoder(w).Encode(saved); err != nil {
		return errors.Join(ErrWriteGob, err)
	}

	return nil
}

// ReadBinary loads results written by WriteBinary.
func ReadBinary(r io.Reader) (Results, error) {
	var saved []savedResult
	if err := gob.NewDecoder(r).Decode(&saved); err != nil {
		return nil, errors.Join(ErrReadGob, err)
	}

	results := make(Results, len(saved))
	for i, s := range saved {
		results[i] = s.result()
	}

	return results, nil
}
