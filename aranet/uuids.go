package aranet

// ManufacturerID is the Bluetooth SIG company identifier carried in Aranet
// advertisements (SAF Tehnika).
const ManufacturerID uint16 = 0x0702

// Services
const (
	ServiceAranet    = "f0cd1400-95da-4f4b-9ac8-aa55d312af0c"
	ServiceAranetOld = "0000fce0-0000-1000-8000-00805f9b34fb"
	ServiceGeneric   = "00001800-0000-1000-8000-00805f9b34fb"
	ServiceCommon    = "0000180a-0000-1000-8000-00805f9b34fb"
)

// Aranet service characteristics
const (
	CharSensorState            = "f0cd1401-95da-4f4b-9ac8-aa55d312af0c"
	CharCommand                = "f0cd1402-95da-4f4b-9ac8-aa55d312af0c"
	CharCurrentReadings        = "f0cd1503-95da-4f4b-9ac8-aa55d312af0c"
	CharCurrentReadingsAR2     = "f0cd1504-95da-4f4b-9ac8-aa55d312af0c"
	CharCurrentReadingsDetails = "f0cd3001-95da-4f4b-9ac8-aa55d312af0c"
	CharTotalReadings          = "f0cd2001-95da-4f4b-9ac8-aa55d312af0c"
	CharInterval               = "f0cd2002-95da-4f4b-9ac8-aa55d312af0c"
	CharHistoryV1              = "f0cd2003-95da-4f4b-9ac8-aa55d312af0c"
	CharSecondsSinceUpdate     = "f0cd2004-95da-4f4b-9ac8-aa55d312af0c"
	CharHistoryV2              = "f0cd2005-95da-4f4b-9ac8-aa55d312af0c"
)

// Generic and device information characteristics
const (
	CharDeviceName       = "00002a00-0000-1000-8000-00805f9b34fb"
	CharManufacturerName = "00002a29-0000-1000-8000-00805f9b34fb"
	CharModelNumber      = "00002a24-0000-1000-8000-00805f9b34fb"
	CharSerialNumber     = "00002a25-0000-1000-8000-00805f9b34fb"
	CharHardwareRevision = "00002a27-0000-1000-8000-00805f9b34fb"
	CharSoftwareRevision = "00002a28-0000-1000-8000-00805f9b34fb"
	CharBatteryLevel     = "00002a19-0000-1000-8000-00805f9b34fb"
)

// Command opcodes written to CharCommand.
const (
	cmdHistoryV1         = 0x82
	cmdHistoryV2         = 0x61
	cmdSetInterval       = 0x90
	cmdSetIntegrations   = 0x91
	cmdSetBluetoothRange = 0x92
)
