// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch evaluates a schedule tree. Leaves are tasks dispatched to the
// executor carried by the context. Serial batches run their children in order and
// stop at the first failure. Parallel batches run up to max_parallel children at
// once and stop starting new ones after a failure, collecting whatever is already
// running. Batches can be nested.
package runbatch
