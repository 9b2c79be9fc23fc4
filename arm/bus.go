package arm

import (
	"pocketarm/arm/peripherals"
	"pocketarm/logger"
)

const (
	flashSize = 256 * 1024
	sramSize  = 32 * 1024

	sramBase = 0x20000000
	sramTop  = 0x40000000

	periphBase = 0x40000000
	periphTop  = 0x60000000

	dmacBase    = 0x41004800
	dmacSize    = 0x4E + 4
	portaBase   = 0x41004400
	portSize    = 0x20 + 4
	portbBase   = 0x41004480
	sercom4Base = 0x42002000
	sercomSize  = 0x28 + 4
	sercom5Base = 0x42002400

	hackOscReady   = 0x4000080C
	hackADCReady   = 0x42004018
	hackRandomAddr = 0x4200401A

	// GPIO bits observed by the display and button peripherals.
	displayChipSelectBit = 22 // PORTA
	displayDCBit         = 23 // PORTB
	buttonsChipSelectBit = 3  // PORTB
)

// Bus is the memory-mapped bus that dispatches reads and writes across
// flash, SRAM, and the peripheral register windows.
type Bus struct {
	flash [flashSize]byte
	sram  [sramSize]byte

	DMAC     peripherals.DMAC
	PortA    peripherals.Port
	PortB    peripherals.Port
	Sercom4  *peripherals.Sercom
	Sercom5  *peripherals.Sercom
	Display  peripherals.Display
	Buttons  peripherals.Buttons
	rng      *rng
}

func newBus(seed int64) *Bus {
	b := &Bus{
		Sercom4: peripherals.NewSercom(),
		Sercom5: peripherals.NewSercom(),
		rng:     newRNG(seed),
	}
	for i := range b.flash {
		b.flash[i] = 0xFF
	}
	for i := range b.sram {
		b.sram[i] = 0xFF
	}
	return b
}

// FetchByte implements peripherals.BusAccess for the DMAC.
func (b *Bus) FetchByte(addr uint32) uint8 {
	return b.readByte(addr)
}

// WriteByte implements peripherals.BusAccess for the DMAC.
func (b *Bus) WriteByte(addr uint32, val uint8) {
	b.writeByte(addr, val)
}

func (b *Bus) readByte(addr uint32) uint8 {
	if addr == hackADCReady {
		return 1
	}

	switch {
	case addr < sramBase:
		if addr < flashSize {
			return b.flash[addr]
		}
		return 0
	case addr < sramTop:
		return b.sram[(addr-sramBase)%sramSize]
	case addr < periphTop:
		v, ok := b.readPeripheral(addr, 1)
		if !ok {
			return 0
		}
		return uint8(v)
	default:
		return 0
	}
}

func (b *Bus) writeByte(addr uint32, val uint8) {
	switch {
	case addr < sramBase:
		// flash: read-only, writes discarded
	case addr < sramTop:
		b.sram[(addr-sramBase)%sramSize] = val
	case addr < periphTop:
		b.writePeripheral(addr, uint32(val), 1)
	}
}

func (b *Bus) readHalfword(addr uint32) uint16 {
	if addr == hackRandomAddr {
		return b.rng.halfword()
	}
	return uint16(b.readByte(addr)) | uint16(b.readByte(addr+1))<<8
}

func (b *Bus) writeHalfword(addr uint32, val uint16) {
	switch {
	case addr >= sramBase && addr < sramTop, addr < sramBase:
		b.writeByte(addr, uint8(val))
		b.writeByte(addr+1, uint8(val>>8))
	case addr < periphTop:
		b.writePeripheral(addr, uint32(val), 2)
	}
}

func (b *Bus) readWord(addr uint32) uint32 {
	if addr == hackOscReady {
		return 0xD2
	}

	switch {
	case addr < sramTop:
		return uint32(b.readByte(addr)) | uint32(b.readByte(addr+1))<<8 |
			uint32(b.readByte(addr+2))<<16 | uint32(b.readByte(addr+3))<<24
	case addr < periphTop:
		v, ok := b.readPeripheral(addr, 4)
		if !ok {
			return 0
		}
		return v
	default:
		return 0
	}
}

func (b *Bus) writeWord(addr uint32, val uint32) {
	switch {
	case addr < sramTop:
		b.writeByte(addr, uint8(val))
		b.writeByte(addr+1, uint8(val>>8))
		b.writeByte(addr+2, uint8(val>>16))
		b.writeByte(addr+3, uint8(val>>24))
	case addr < periphTop:
		b.writePeripheral(addr, val, 4)
	}
}

func (b *Bus) readPeripheral(addr uint32, size int) (uint32, bool) {
	switch {
	case addr >= dmacBase && addr < dmacBase+dmacSize:
		return b.DMAC.Read(addr - dmacBase)
	case addr >= portaBase && addr < portaBase+portSize:
		return b.PortA.Read(addr - portaBase)
	case addr >= portbBase && addr < portbBase+portSize:
		return b.PortB.Read(addr - portbBase)
	case addr >= sercom4Base && addr < sercom4Base+sercomSize:
		return b.Sercom4.Read(addr - sercom4Base)
	case addr >= sercom5Base && addr < sercom5Base+sercomSize:
		return b.Sercom5.Read(addr - sercom5Base)
	default:
		logger.Logf("arm", "read from unmapped peripheral address 0x%08X (size %d)", addr, size)
		return 0, false
	}
}

func (b *Bus) writePeripheral(addr uint32, val uint32, size int) {
	switch {
	case addr >= dmacBase && addr < dmacBase+dmacSize:
		b.DMAC.Write(addr-dmacBase, val, b)
	case addr >= portaBase && addr < portaBase+portSize:
		b.PortA.Write(addr-portaBase, val)
	case addr >= portbBase && addr < portbBase+portSize:
		b.PortB.Write(addr-portbBase, val)
	case addr >= sercom4Base && addr < sercom4Base+sercomSize:
		if b.Sercom4.Write(addr-sercom4Base, uint8(val)) {
			b.deliverSercom4()
		}
	case addr >= sercom5Base && addr < sercom5Base+sercomSize:
		b.Sercom5.Write(addr-sercom5Base, uint8(val))
	default:
		logger.Logf("arm", "write to unmapped peripheral address 0x%08X (size %d)", addr, size)
	}
}

// deliverSercom4 implements the ordering guarantee from the bus
// contract: the peripheral's own register state is already updated by
// the time this runs; any emitted byte is now consumed by downstream
// peripherals (display, buttons); then the transient slot is cleared.
func (b *Bus) deliverSercom4() {
	if b.Sercom4.Sent == nil {
		return
	}
	sent := *b.Sercom4.Sent

	chipSelectDeasserted := b.PortA.Bit(displayChipSelectBit)
	dataNotCommand := b.PortB.Bit(displayDCBit)
	b.Display.Consume(sent, chipSelectDeasserted, dataNotCommand)

	buttonsCSAsserted := !b.PortB.Bit(buttonsChipSelectBit)
	b.Buttons.Notify(b.Sercom4, buttonsCSAsserted)

	b.Sercom4.ClearSent()
}
