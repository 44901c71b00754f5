// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantOutput string
	}{
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantCode:   1,
			wantOutput: "error: boom\n",
		},
		{
			name:       "wrapped exit error",
			err:        fmt.Errorf("validating: %w", &ExitError{Code: 3, Err: errors.New("bag is invalid")}),
			wantCode:   3,
			wantOutput: "error: validating: bag is invalid\n",
		},
		{
			name:     "silent exit error",
			err:      &ExitError{Code: 2},
			wantCode: 2,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var output bytes.Buffer
			code := report(&output, test.err)
			if code != test.wantCode {
				t.Errorf("code = %d, want %d", code, test.wantCode)
			}
			if output.String() != test.wantOutput {
				t.Errorf("output = %q, want %q", output.String(), test.wantOutput)
			}
		})
	}
}
