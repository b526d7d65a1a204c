// flex_test.go
//
// Auto loan origination service: applications, staff console and dealer portal
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of autofin.
// autofin is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// autofin is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with autofin.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexListForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"array", `{"ids":["a","b"]}`, []string{"a", "b"}},
		{"single", `{"ids":"a"}`, []string{"a"}},
		{"comma separated", `{"ids":"a, b,,c"}`, []string{"a", "b", "c"}},
		{"duplicates dropped", `{"ids":["a","","a","b"]}`, []string{"a", "b"}},
		{"null", `{"ids":null}`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body struct {
				IDs FlexList[string] `json:"ids"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.body), &body))
			assert.Equal(t, tt.want, body.IDs.Slice())
		})
	}
}

func TestFlexListRejectsWrongType(t *testing.T) {
	var ids FlexList[string]
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &ids))
}

func TestFlexUint64(t *testing.T) {
	var body struct {
		Version *FlexUint64 `json:"version"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"version":"7"}`), &body))
	require.NotNil(t, body.Version)
	assert.Equal(t, uint64(7), body.Version.Uint64())

	require.NoError(t, json.Unmarshal([]byte(`{"version":8}`), &body))
	assert.Equal(t, uint64(8), body.Version.Uint64())

	assert.Error(t, json.Unmarshal([]byte(`{"version":"x"}`), &body))
	assert.Error(t, json.Unmarshal([]byte(`{"version":true}`), &body))

	out, err := json.Marshal(FlexUint64(9))
	require.NoError(t, err)
	assert.Equal(t, "9", string(out))
}
