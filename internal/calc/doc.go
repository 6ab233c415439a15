// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package calc evaluates the small arithmetic expressions used to size worker pools,
// for example "cpuCount / 2 - 1".
//
// Expressions contain numbers, the operators + - * /, parentheses and the constant cpuCount.
// A minus sign is only unary when it sits directly in front of a number or cpuCount.
package calc
