// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/Fantom-foundation/Tessera/go/examples"
	"github.com/urfave/cli/v2"
)

func TestReadCode_AcceptsHexAndFiles(t *testing.T) {
	code := examples.CounterContract()
	path := filepath.Join(t.TempDir(), "counter.wasm")
	if err := os.WriteFile(path, code, 0600); err != nil {
		t.Fatalf("failed to write code: %v", err)
	}

	for name, arg := range map[string]string{
		"hex":  "0x" + hex.EncodeToString(code),
		"file": path,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := readCode(arg)
			if err != nil {
				t.Fatalf("failed to read code: %v", err)
			}
			if !bytes.Equal(code, got) {
				t.Errorf("unexpected code, wanted %x, got %x", code, got)
			}
		})
	}
}

func TestReadCode_MissingFile(t *testing.T) {
	if _, err := readCode(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("expected an error")
	}
}

func runApp(args ...string) error {
	app := &cli.App{
		Name:     "tessera",
		Commands: []*cli.Command{&ValidateCmd, &RunCmd, &ScheduleCmd},
	}
	return app.Run(append([]string{"tessera"}, args...))
}

func TestValidate_ReportsRejectedCode(t *testing.T) {
	valid := "0x" + hex.EncodeToString(examples.CounterContract())
	invalid := "0x" + hex.EncodeToString(examples.FloatContract())

	tests := map[string]struct {
		args    []string
		success bool
	}{
		"valid":   {args: []string{valid}, success: true},
		"invalid": {args: []string{invalid}, success: false},
		"mixed":   {args: []string{valid, invalid}, success: false},
		"none":    {args: nil, success: false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := runApp(append([]string{"validate", "--verbosity", "1"}, test.args...)...)
			if test.success && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.success && err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestRun_ExecutesContract(t *testing.T) {
	code := "0x" + hex.EncodeToString(examples.CounterContract())
	db := t.TempDir()
	if err := runApp("run", "--verbosity", "1", "--db", db, "--calls", "2", code); err != nil {
		t.Fatalf("failed to run contract: %v", err)
	}
	// The code store keeps the code for later runs.
	if err := runApp("run", "--verbosity", "1", "--db", db, code); err != nil {
		t.Fatalf("failed to run contract again: %v", err)
	}
}

func TestRun_FailsForRejectedCode(t *testing.T) {
	code := "0x" + hex.EncodeToString(examples.FloatContract())
	if err := runApp("run", "--verbosity", "1", code); err == nil {
		t.Errorf("expected an error")
	}
}

func TestSchedule_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.toml")
	if err := os.WriteFile(path, []byte("Version = 0\n"), 0600); err != nil {
		t.Fatalf("failed to write schedule: %v", err)
	}
	if err := runApp("schedule", "--verbosity", "1", "--schedule", path); err == nil {
		t.Errorf("expected an error")
	}
	if err := runApp("schedule", "--verbosity", "1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
