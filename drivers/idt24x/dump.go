package idt24x

// DumpRegisters reads the full register file and renders it as
// space-separated hex bytes, one pair per register in address order.
func (d *Device) DumpRegisters() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([]byte, NumConfigRegisters)
	if err := d.readBulk(0, buf); err != nil {
		return "", err
	}

	out := make([]byte, 0, len(buf)*3)
	for i, b := range buf {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, hexDigits[b>>4], hexDigits[b&0xF])
	}
	return string(out), nil
}
