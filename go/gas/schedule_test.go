// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package gas

import (
	"strings"
	"testing"
)

func TestSchedule_DefaultIsValid(t *testing.T) {
	schedule := DefaultSchedule()
	if err := schedule.Validate(); err != nil {
		t.Errorf("default schedule is invalid: %v", err)
	}
}

func TestSchedule_ValidateReportsAllIssues(t *testing.T) {
	schedule := DefaultSchedule()
	schedule.Version = 0
	schedule.Limits.MaxCallDepth = 0
	schedule.Limits.MaxMemoryPages = maxPages + 1

	err := schedule.Validate()
	if err == nil {
		t.Fatalf("expected validation to fail")
	}
	for _, issue := range []string{"version", "MaxCallDepth", "MaxMemoryPages"} {
		if !strings.Contains(err.Error(), issue) {
			t.Errorf("issue %s not reported in %v", issue, err)
		}
	}
}

func TestSchedule_ValidateRejectsFreeControlFlow(t *testing.T) {
	tests := map[string]func(*Schedule){
		"branch":        func(s *Schedule) { s.Branch = 0 },
		"call":          func(s *Schedule) { s.Call = 0 },
		"call indirect": func(s *Schedule) { s.CallIndirect = 0 },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			schedule := DefaultSchedule()
			modify(&schedule)
			if err := schedule.Validate(); err == nil {
				t.Errorf("expected validation to fail")
			}
		})
	}
}

func TestSchedule_ValidateAcceptsFreeStaticPrices(t *testing.T) {
	schedule := DefaultSchedule()
	schedule.Regular = 0
	schedule.Load = 0
	if err := schedule.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSchedule_UploadFee(t *testing.T) {
	schedule := DefaultSchedule()
	want := schedule.PutCode + 100*schedule.PutCodePerByte
	if got := schedule.UploadFee(100); want != got {
		t.Errorf("unexpected fee, wanted %d, got %d", want, got)
	}
	if want, got := schedule.PutCode, schedule.UploadFee(0); want != got {
		t.Errorf("unexpected fee for empty code, wanted %d, got %d", want, got)
	}
}
