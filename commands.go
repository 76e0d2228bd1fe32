package epd1in54v3

// Command opcodes for the JD79653 controller driving the GDEW0154M09 panel.
// The set is closed: the controller recognizes nothing else over this bus.
const (
	panelSetting           byte = 0x00
	powerOff               byte = 0x02
	powerOn                byte = 0x04
	deepSleep              byte = 0x07
	dataStartTransmission1 byte = 0x10
	displayRefresh         byte = 0x12
	dataStartTransmission2 byte = 0x13

	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F

	vcomAndDataIntervalSetting byte = 0x50
	tconSetting                byte = 0x60
	resolutionSetting          byte = 0x61

	// Undocumented tuning registers from the GoodDisplay sample code. This
	// panel revision does not initialize without them.
	internalTuning4D byte = 0x4D
	internalTuningAA byte = 0xAA
	internalTuningB6 byte = 0xB6
	internalTuningE3 byte = 0xE3
	internalTuningE9 byte = 0xE9
	internalTuningF3 byte = 0xF3
)

// deepSleepCheck is the payload byte the controller requires with the
// deepSleep opcode.
const deepSleepCheck byte = 0xA5
