// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Ortham

package bsa

import "testing"

func TestSaveFlagsValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		flags   SaveFlags
		wantErr bool
	}{
		{"tes3 level0 ok", SaveFlags{Format: FormatTes3, Compression: Level0}, false},
		{"tes3 level9 rejected", SaveFlags{Format: FormatTes3, Compression: Level9}, true},
		{"tes3 nochange rejected", SaveFlags{Format: FormatTes3, Compression: NoChange}, true},
		{"tes4 level0 ok", SaveFlags{Format: FormatTes4, Compression: Level0}, false},
		{"tes4 nochange ok", SaveFlags{Format: FormatTes4, Compression: NoChange}, false},
		{"tes5 level9 ok", SaveFlags{Format: FormatTes5, Compression: Level9}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.flags.validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestAssetStoredSize(t *testing.T) {
	t.Parallel()

	a := Asset{Size: 100 | fileInvertCompressed}
	if got := a.StoredSize(); got != 100 {
		t.Errorf("StoredSize() = %d, want 100", got)
	}

	b := Asset{Size: 200}
	if got := b.StoredSize(); got != 200 {
		t.Errorf("StoredSize() = %d, want 200", got)
	}
}
