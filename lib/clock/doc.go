// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Bag construction stamps Bagging-Date into bag-info.txt, and the
// worker client bounds how long it waits for a worker to exit after
// sending the exit command. Both accept a [Clock] instead of calling
// time.Now or time.After directly. Production code passes [Real]; tests
// pass [Fake], whose time only moves when Advance or Set is called:
//
//	c := clock.Fake(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
//	bag, err := bagit.Make(ctx, dir, bagit.MakeOptions{Clock: c})
//	// bag-info.txt now carries "Bagging-Date: 2026-01-02"
package clock
