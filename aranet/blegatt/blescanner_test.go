package blegatt

import (
	"testing"

	"github.com/go-ble/ble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alepar/aranet/aranet"
)

type fakeAdvertisement struct {
	name     string
	mfg      []byte
	services []ble.UUID
	rssi     int
	addr     string
}

func (a fakeAdvertisement) LocalName() string              { return a.name }
func (a fakeAdvertisement) ManufacturerData() []byte       { return a.mfg }
func (a fakeAdvertisement) ServiceData() []ble.ServiceData { return nil }
func (a fakeAdvertisement) Services() []ble.UUID           { return a.services }
func (a fakeAdvertisement) OverflowService() []ble.UUID    { return nil }
func (a fakeAdvertisement) TxPowerLevel() int              { return 0 }
func (a fakeAdvertisement) Connectable() bool              { return true }
func (a fakeAdvertisement) SolicitedService() []ble.UUID   { return nil }
func (a fakeAdvertisement) RSSI() int                      { return a.rssi }
func (a fakeAdvertisement) Addr() ble.Addr                 { return ble.NewAddr(a.addr) }

var aranet2Payload = []byte{
	0x01, 0x21, 0x04, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x99, 0x01,
	0x00, 0x00, 0x0a, 0x02, 0x00, 0x3b, 0x09, 0x78, 0x00, 0x52, 0x00, 0x64,
}

func TestAranetOnlyFilter(t *testing.T) {
	cases := []struct {
		desc string
		mfg  []byte
		want bool
	}{
		{desc: "aranet", mfg: append([]byte{0x02, 0x07}, aranet2Payload...), want: true},
		{desc: "other vendor", mfg: append([]byte{0x4c, 0x00}, aranet2Payload...)},
		{desc: "no manufacturer data"},
		{desc: "truncated company id", mfg: []byte{0x02}},
	}

	for _, tc := range cases {
		got := aranetOnlyFilter(fakeAdvertisement{mfg: tc.mfg})
		assert.Equal(t, tc.want, got, tc.desc)
	}
}

func TestToAdvertisement(t *testing.T) {
	a := fakeAdvertisement{
		name:     "Aranet2 278F8",
		mfg:      append([]byte{0x02, 0x07}, aranet2Payload...),
		services: []ble.UUID{ble.MustParse(aranet.ServiceAranet)},
		rssi:     -71,
		addr:     "aa:bb:cc:dd:ee:ff",
	}

	adv, ok := toAdvertisement(a)
	require.True(t, ok)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", adv.Address)
	assert.Equal(t, "Aranet2 278F8", adv.Name)
	assert.Equal(t, -71, adv.RSSI)
	assert.Len(t, adv.ServiceUUIDs, 1)
	require.NotNil(t, adv.ManufacturerData)
	assert.Equal(t, "v1.4.4", adv.ManufacturerData.Version.String())
	require.NotNil(t, adv.Readings)
	assert.Equal(t, aranet.ModelDualSensor, adv.Readings.Model)

	_, ok = toAdvertisement(fakeAdvertisement{addr: "aa:bb:cc:dd:ee:ff"})
	assert.False(t, ok)
}

func TestScannerRetries(t *testing.T) {
	assert.Equal(t, 1, (&BleScanner{}).retries())
	assert.Equal(t, 4, (&BleScanner{Retries: 4}).retries())
}
