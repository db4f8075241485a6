package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrandStatus(t *testing.T) {
	testCases := []struct {
		input     string
		expected  BrandStatus
		expectErr bool
	}{
		{"PENDIENTE", BrandStatusPending, false},
		{"aprobada", BrandStatusApproved, false},
		{" Rechazada ", BrandStatusRejected, false},
		{"activo", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			status, err := ParseBrandStatus(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, status)
		})
	}
}

func TestUpdateBrandRequest_OnlyChangedFieldsAreTransmitted(t *testing.T) {
	statusOnly := UpdateBrandRequest{Status: StatusPtr(BrandStatusRejected)}
	body, err := json.Marshal(statusOnly)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"RECHAZADA"}`, string(body))

	nameOnly := UpdateBrandRequest{Name: StringPtr("Acme")}
	body, err = json.Marshal(nameOnly)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Acme"}`, string(body))

	assert.True(t, UpdateBrandRequest{}.IsEmpty())
	assert.False(t, nameOnly.IsEmpty())
}

func TestEnvelope_DecodesBrandList(t *testing.T) {
	raw := `{"success":true,"msg":"ok","data":[{"id":1,"name":"Acme","status":"APROBADA","owner":{"id":5,"name":"acme"}}],"errors":null}`

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Errors)

	var brands []Brand
	require.NoError(t, json.Unmarshal(env.Data, &brands))
	require.Len(t, brands, 1)
	assert.Equal(t, Brand{ID: 1, Name: "Acme", Status: BrandStatusApproved, Owner: Owner{ID: 5, Name: "acme"}}, brands[0])
}
