package emu

// 8237 DMA controller emulation, channels 0-3 with the standard PC port
// assignment. Address and count registers are 16-bit behind an 8-bit bus,
// sequenced by the byte flip-flop. Mode registers read back in channel
// rotation as on 82C37-class parts; the flip-flop reset command also
// rewinds the rotation pointer so a reader can address a specific channel.
type I8237 struct {
	flipflop bool
	modePtr  int
	status   byte
	ch       [4]dmaChannel
}

type dmaChannel struct {
	baseAddr  uint16
	curAddr   uint16
	baseCount uint16
	curCount  uint16
	page      byte
	mode      byte
	masked    bool
}

// Page register port to channel mapping (PC wiring order).
var pageToChannel = map[uint16]int{
	0x87: 0,
	0x83: 1,
	0x81: 2,
	0x82: 3,
}

// NewI8237 creates the controller with all channels masked, the reset state
// BIOS leaves unused channels in.
func NewI8237() *I8237 {
	d := &I8237{}
	for i := range d.ch {
		d.ch[i].masked = true
	}
	return d
}

// In reads a controller or page port.
func (d *I8237) In(port uint16) byte {
	if ch, ok := pageToChannel[port]; ok {
		return d.ch[ch].page
	}
	switch {
	case port <= 0x07:
		ch := &d.ch[port>>1]
		if port&1 == 0 {
			return d.readWord(&ch.curAddr)
		}
		return d.readWord(&ch.curCount)
	case port == 0x08:
		// Status: TC bits clear on read.
		s := d.status
		d.status &= 0xF0
		return s
	case port == 0x0B:
		m := d.ch[d.modePtr].mode
		d.modePtr = (d.modePtr + 1) & 3
		return m
	case port == 0x0F:
		var m byte
		for i := range d.ch {
			if d.ch[i].masked {
				m |= 1 << i
			}
		}
		return m
	default:
		return 0xFF
	}
}

// Out writes a controller or page port.
func (d *I8237) Out(port uint16, data byte) {
	if ch, ok := pageToChannel[port]; ok {
		d.ch[ch].page = data
		return
	}
	switch {
	case port <= 0x07:
		ch := &d.ch[port>>1]
		if port&1 == 0 {
			d.writeWord(&ch.baseAddr, data)
			ch.curAddr = ch.baseAddr
		} else {
			d.writeWord(&ch.baseCount, data)
			ch.curCount = ch.baseCount
		}
	case port == 0x0A:
		ch := &d.ch[data&3]
		ch.masked = data&0x04 != 0
	case port == 0x0B:
		d.ch[data&3].mode = data
	case port == 0x0C:
		d.flipflop = false
		d.modePtr = 0
	case port == 0x0D:
		// Master clear.
		*d = I8237{}
		for i := range d.ch {
			d.ch[i].masked = true
		}
	case port == 0x0E:
		for i := range d.ch {
			d.ch[i].masked = false
		}
	case port == 0x0F:
		for i := range d.ch {
			d.ch[i].masked = data&(1<<i) != 0
		}
	}
}

// readWord returns the low or high byte of v per the flip-flop. The write
// path shares the same sequencing, so a flip-flop reset pins both to
// low-byte-first.
func (d *I8237) readWord(v *uint16) byte {
	if !d.flipflop {
		d.flipflop = true
		return byte(*v)
	}
	d.flipflop = false
	return byte(*v >> 8)
}

func (d *I8237) writeWord(v *uint16, data byte) {
	if !d.flipflop {
		d.flipflop = true
		*v = *v&0xFF00 | uint16(data)
	} else {
		d.flipflop = false
		*v = *v&0x00FF | uint16(data)<<8
	}
}

// Masked reports the channel mask bit.
func (d *I8237) Masked(ch int) bool {
	return d.ch[ch&3].masked
}

// TransferOne services one DRQ on the channel: one byte moved between
// memory and the device, address stepped, count decremented. Returns
// whether a byte moved and whether this byte hit terminal count. On TC a
// single-mode channel masks itself; an auto-init channel reloads address
// and count from the base registers.
func (d *I8237) TransferOne(ch int, read func(addr uint32) byte, dev func(byte)) (moved, tc bool) {
	c := &d.ch[ch&3]
	if c.masked {
		return false, false
	}

	addr := uint32(c.page)<<16 | uint32(c.curAddr)
	if c.mode&0x08 != 0 { // device reads from memory
		dev(read(addr))
	}

	if c.mode&0x20 != 0 {
		c.curAddr--
	} else {
		c.curAddr++
	}

	tc = c.curCount == 0
	c.curCount--
	if tc {
		d.status |= 1 << (ch & 3)
		if c.mode&0x10 != 0 { // auto-init
			c.curAddr = c.baseAddr
			c.curCount = c.baseCount
		} else {
			c.masked = true
		}
	}
	return true, tc
}
