package ux

import (
	"bytes"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"debundle/pkg/batch"
	derrors "debundle/pkg/errors"
	"debundle/pkg/reconstruct"
)

func TestTallyPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinterWithColor(&buf, false)

	p.Tally(&batch.Tally{
		RunID: "0f8fad5b-d9cb-469f-a165-70867728950e",
		Succeeded: []*batch.FileResult{
			{RelPath: "a.js", Report: &reconstruct.Report{
				Elements: 2,
				Booleans: 1,
				Classes:  map[reconstruct.ClassEncoding]int{reconstruct.ClassPlain: 1},
			}},
			{RelPath: "b.js", Report: &reconstruct.Report{
				Imports:     3,
				Diagnostics: 1,
				Classes:     map[reconstruct.ClassEncoding]int{reconstruct.ClassNewWrapped: 2},
			}},
		},
		Failed: []*batch.FileResult{
			{RelPath: "c.js", Err: &derrors.TransformError{
				Position: derrors.Position{Line: 3, Column: 9},
				Msg:      "cannot convert props",
			}},
		},
		Duration: 1500 * time.Microsecond,
	})

	want := "✗ c.js:3:9: cannot convert props\n" +
		"✓ 2 transformed  ✗ 1 failed  in 2ms  (run 0f8fad5b)\n" +
		"  elements 2  imports 3  exports 0  classes 3  booleans 1  indirect calls 0" +
		" [Plain 1, NewExpressionWrapped 2]  ⚠ 1 markup calls skipped\n"
	assert.Equal(t, want, buf.String())
}

func TestTallyWithoutFailures(t *testing.T) {
	var buf bytes.Buffer
	NewPrinterWithColor(&buf, false).Tally(&batch.Tally{})
	assert.Equal(t, "✓ 0 transformed  in 0s\n"+
		"  elements 0  imports 0  exports 0  classes 0  booleans 0  indirect calls 0\n", buf.String())
}

func TestColorPrinterKeepsText(t *testing.T) {
	var buf bytes.Buffer
	NewPrinterWithColor(&buf, true).FileError("x.js", fmt.Errorf("read: boom"))
	assert.Contains(t, buf.String(), "x.js: read: boom")
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"positioned", &derrors.SyntaxError{Position: derrors.Position{Line: 1, Column: 4}, Msg: "unexpected token"}, "m.js:1:4: unexpected token"},
		{"wrapped", fmt.Errorf("transform: %w", &derrors.TransformError{Position: derrors.Position{Line: 7, Column: 1}, Msg: "bad"}), "m.js:7:1: bad"},
		{"plain", fmt.Errorf("read: denied"), "m.js: read: denied"},
		{"unpositioned", &derrors.TransformError{Msg: "bad"}, "m.js: Transform Error: bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe("m.js", tt.err))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	assert.False(t, IsTerminal(f))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, IsTerminal(os.Stdout))
}
