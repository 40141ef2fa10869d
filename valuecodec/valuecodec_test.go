package valuecodec

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syssam/persistcore/registry"
)

type status string

const (
	statusActive  status = "ACTIVE"
	statusDormant status = "DORMANT"
)

type account struct {
	Name      string
	Balance   float64
	Active    bool
	Status    status
	CreatedAt time.Time
	Secret    string `persist:"encrypted"`
}

func testFieldSpec(t *testing.T, name string) *registry.FieldSpec {
	t.Helper()
	reg, err := registry.RegisterTypes(&account{})
	require.NoError(t, err)
	et, _ := reg.Get("account")
	fs, ok := et.FieldByName(name)
	require.True(t, ok)
	return fs
}

func TestEncodeDecodeStringRoundTrip(t *testing.T) {
	fs := testFieldSpec(t, "Name")
	c := New(nil)
	transport, encrypted, err := c.EncodeData(fs, reflect.ValueOf("acme"))
	require.NoError(t, err)
	require.False(t, encrypted)
	require.Equal(t, "acme", transport)

	v, fallback, err := c.DecodeData(fs, transport, false, "")
	require.NoError(t, err)
	require.False(t, fallback)
	require.Equal(t, "acme", v.String())
}

func TestEncodeDecodeBoolRoundTrip(t *testing.T) {
	fs := testFieldSpec(t, "Active")
	c := New(nil)
	transport, _, err := c.EncodeData(fs, reflect.ValueOf(true))
	require.NoError(t, err)
	require.Equal(t, BoolTrue, transport)

	v, _, err := c.DecodeData(fs, transport, false, "")
	require.NoError(t, err)
	require.True(t, v.Bool())

	transport, _, err = c.EncodeData(fs, reflect.ValueOf(false))
	require.NoError(t, err)
	require.Equal(t, BoolFalse, transport)
}

func TestEncodeDecodeFloatRoundTrip(t *testing.T) {
	fs := testFieldSpec(t, "Balance")
	c := New(nil)
	transport, _, err := c.EncodeData(fs, reflect.ValueOf(1.5))
	require.NoError(t, err)
	require.Equal(t, 1.5, transport)

	v, _, err := c.DecodeData(fs, transport, false, "")
	require.NoError(t, err)
	require.Equal(t, 1.5, v.Float())
}

func TestEncodeDecodeTimeRoundTripsAtMillisecondPrecision(t *testing.T) {
	fs := testFieldSpec(t, "CreatedAt")
	c := New(nil)
	now := time.Date(2026, 7, 29, 10, 0, 0, 123456789, time.UTC)
	transport, _, err := c.EncodeData(fs, reflect.ValueOf(now))
	require.NoError(t, err)

	v, _, err := c.DecodeData(fs, transport, false, "")
	require.NoError(t, err)
	got := v.Interface().(time.Time)
	require.Equal(t, now.Round(time.Millisecond).UnixMilli(), got.UnixMilli())
}

func TestEncodeDecodeEnumRoundTrip(t *testing.T) {
	fs := testFieldSpec(t, "Status")
	c := New(nil)
	transport, _, err := c.EncodeData(fs, reflect.ValueOf(statusActive))
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", transport)

	v, _, err := c.DecodeData(fs, transport, false, "")
	require.NoError(t, err)
	require.Equal(t, statusActive, v.Interface().(status))
}

func TestEncodeDataNilPointerReturnsNilTransport(t *testing.T) {
	fs := testFieldSpec(t, "Name")
	c := New(nil)
	var nilPtr *string
	transport, _, err := c.EncodeData(fs, reflect.ValueOf(nilPtr))
	require.NoError(t, err)
	require.Nil(t, transport)
}

func TestDecodeDataNilTransportReturnsInvalidValue(t *testing.T) {
	fs := testFieldSpec(t, "Name")
	c := New(nil)
	v, _, err := c.DecodeData(fs, nil, false, "")
	require.NoError(t, err)
	require.False(t, v.IsValid())
}

func TestEncryptedFieldRoundTripsWithCrypto(t *testing.T) {
	fs := testFieldSpec(t, "Secret")
	crypto, err := NewCrypto("pw", "salt")
	require.NoError(t, err)
	c := New(crypto)

	transport, encrypted, err := c.EncodeData(fs, reflect.ValueOf("s3cr3t"))
	require.NoError(t, err)
	require.True(t, encrypted)
	require.NotEqual(t, "s3cr3t", transport)

	v, _, err := c.DecodeData(fs, transport, true, "")
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", v.String())
}

func TestEncryptedFieldWithoutCryptoStoresPlaintext(t *testing.T) {
	fs := testFieldSpec(t, "Secret")
	c := New(nil)
	transport, encrypted, err := c.EncodeData(fs, reflect.ValueOf("s3cr3t"))
	require.NoError(t, err)
	require.False(t, encrypted)
	require.Equal(t, "s3cr3t", transport)
}

func TestEncodeDecodeElementRoundTrip(t *testing.T) {
	transport, err := EncodeElement(reflect.ValueOf("tag"))
	require.NoError(t, err)
	require.Equal(t, "tag", transport)

	v, err := DecodeElement(reflect.TypeOf(""), transport)
	require.NoError(t, err)
	require.Equal(t, "tag", v.String())
}

func TestCryptoEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCrypto("password", "salt")
	require.NoError(t, err)
	ct, err := c.Encrypt("hello world")
	require.NoError(t, err)
	require.NotEqual(t, "hello world", ct)

	pt, err := c.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "hello world", pt)
}

func TestNewCryptoRejectsEmptyPassword(t *testing.T) {
	_, err := NewCrypto("", "salt")
	require.Error(t, err)
}
