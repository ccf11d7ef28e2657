package pzem004t

func CreateTestMeter() (Meter, error) {
	return &TestMeter{
		address:   AddressUniversal,
		threshold: 2300,
		energy:    47.223,
	}, nil
}

// TestMeter answers every operation with canned values and keeps writes
// in memory.
type TestMeter struct {
	address   uint8
	threshold uint16
	energy    float64
}

func (m *TestMeter) Open() error {
	return nil
}

func (m *TestMeter) Close() error {
	return nil
}

func (m *TestMeter) Address() uint8 {
	return m.address
}

func (m *TestMeter) ReadMeasurements(out *Measurement, _ Wait) error {
	*out = Measurement{
		Voltage:     231.2,
		Current:     0.5,
		Power:       115.7,
		Energy:      m.energy,
		Frequency:   49.9,
		PowerFactor: 0.98,
		Alarm:       false,
	}
	return nil
}

func (m *TestMeter) GetAlarmThreshold(_ Wait) (uint16, error) {
	return m.threshold, nil
}

func (m *TestMeter) SetAlarmThreshold(watts uint16, _ Wait) error {
	m.threshold = watts
	return nil
}

func (m *TestMeter) GetAddress(_ Wait) (uint8, error) {
	if m.address == AddressUniversal {
		return 0x01, nil
	}
	return m.address, nil
}

func (m *TestMeter) SetAddress(address uint8, _ Wait) error {
	if address == AddressUniversal {
		return ErrIllegalAddress
	}
	if err := ValidateAddress(address); err != nil {
		return err
	}
	m.address = address
	return nil
}

func (m *TestMeter) ResetEnergy(_ Wait) error {
	m.energy = 0
	return nil
}
