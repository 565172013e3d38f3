package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tour-booking/internal/payfast"
)

func TestParsePrices(t *testing.T) {
	got, err := parsePrices([]string{"Adult=45000", " child = 22500"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"adult": 45000, "child": 22500}, got)

	for _, bad := range [][]string{{"child=100"}, {"adult"}, {"adult=-1"}, {"adult=12.50"}, {"=100"}} {
		_, err := parsePrices(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseOptionalTime(t *testing.T) {
	got, err := parseOptionalTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseOptionalTime("2026-12-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 8, got.Hour())

	_, err = parseOptionalTime("tomorrow")
	assert.Error(t, err)
}

func TestSignCommand(t *testing.T) {
	var f payfast.Fields
	f.Add("merchant_id", "10000100")
	f.Add("amount", "100.00")
	f.Add("item_name", "Table Mountain Hike")
	f.Add("signature", payfast.NotificationSignature(f, "secret"))

	cmd := signCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{f.Encode(), "--passphrase", "secret"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "notification: "+payfast.NotificationSignature(f, "secret"))
	assert.Contains(t, out.String(), "verifies:     true")
}
