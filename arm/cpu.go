package arm

import (
	"pocketarm/errors"
	"pocketarm/logger"
)

// Machine is one ARMv6-M/Thumb core plus its memory-mapped bus and
// on-chip peripherals: flash, SRAM, DMAC, two GPIO ports, two SERCOM
// blocks, the ST7735 display state machine, and the button shifter.
type Machine struct {
	registers [rNum]uint32
	flags     Flags

	bus *Bus

	instructions   []Instruction
	programOffset  uint32
	systickVector  uint32
	dmacVector     uint32
	systickCounter int64
	tickCount      uint64
}

// New returns a freshly constructed Machine: flash and SRAM filled
// with 0xFF, registers zero, flags clear, SysTick counter armed.
// seed drives the reproducible-RNG compatibility address.
func New(seed int64) *Machine {
	return &Machine{
		bus:            newBus(seed),
		systickCounter: systickPeriod,
	}
}

// LoadProgram copies program into flash at offset, decodes every
// halfword of it into the instruction array, and performs reset.
func (m *Machine) LoadProgram(program []byte, offset uint32) error {
	if offset >= flashSize || uint64(offset)+uint64(len(program)) > flashSize {
		return errors.Errorf("load program: %d bytes at offset %d overflows flash", len(program), offset)
	}

	copy(m.bus.flash[offset:], program)

	numHalfwords := len(program) / 2
	m.instructions = make([]Instruction, numHalfwords)
	for i := 0; i < numHalfwords; {
		instr := uint16(program[i*2]) | uint16(program[i*2+1])<<8
		var next uint16
		if i+1 < numHalfwords {
			next = uint16(program[(i+1)*2]) | uint16(program[(i+1)*2+1])<<8
		}

		ins, pair := Decode(instr, next)
		m.instructions[i] = ins
		if pair {
			m.instructions[i+1] = decodeBlSecond(next)
			i += 2
		} else {
			i++
		}
	}

	m.programOffset = offset
	m.reset()
	return nil
}

// reset implements the §4.4 reset sequence: SP and PC load from the
// vector table at the program's base, LR is poisoned, and the SysTick
// and DMAC vectors are captured for later exception dispatch.
func (m *Machine) reset() {
	m.registers = [rNum]uint32{}
	m.flags.reset()

	m.registers[rSP] = m.bus.readWord(m.programOffset + 0x0000)
	m.registers[rPC] = (m.bus.readWord(m.programOffset+0x0004) &^ 1) + 2
	m.registers[rLR] = 0xFFFFFFFF

	m.systickCounter = systickPeriod
	m.systickVector = m.bus.readWord(m.programOffset+0x003C) &^ 1
	m.dmacVector = m.bus.readWord(m.programOffset+0x0058) &^ 1
}

// advancePC performs every pipeline +2 PC advance and is the single
// place that maintains the tick count and the SysTick countdown. Forms
// that load a new PC value (branches, BX/BLX, POP PC, BL, exception
// entry and return) assign PC directly and then call advancePC for the
// pipeline step.
func (m *Machine) advancePC(delta uint32) {
	m.registers[rPC] += delta
	m.tickCount++
	m.systickCounter--
}

// Step advances the machine by one instruction, including servicing
// any pending exception entry or EXC_RETURN unwind at the boundary.
func (m *Machine) Step() {
	unwound := false
	for m.tryExcReturn() {
		unwound = true
	}
	if unwound {
		return
	}

	if m.bus.DMAC.Pending {
		m.bus.DMAC.Pending = false
		m.enterException(m.dmacVector)
		return
	}
	if m.systickCounter <= 0 {
		m.systickCounter = systickPeriod
		m.enterException(m.systickVector)
		return
	}

	addr := m.registers[rPC] - 2
	idx := int((addr - m.programOffset) / 2)

	var ins Instruction
	if idx >= 0 && idx < len(m.instructions) {
		ins = m.instructions[idx]
	} else {
		logger.Logf("arm", "fetch outside decoded program at 0x%08X", addr)
	}

	m.advancePC(2)
	m.execute(ins)
}

// Run sets the button shifter state for the duration of the call and
// executes step() until the tick count has advanced by steps.
func (m *Machine) Run(steps int, buttons byte) {
	m.bus.Buttons.SetState(buttons)
	target := m.tickCount + uint64(steps)
	for m.tickCount < target {
		m.Step()
	}
}

// ScreenData returns the framebuffer, stable for the lifetime of the
// Machine.
func (m *Machine) ScreenData() []uint32 {
	return m.bus.Display.Framebuffer[:]
}

// GetRegister returns the current value of register i (0-15).
func (m *Machine) GetRegister(i int) uint32 {
	return m.registers[i]
}

// GetTickCount returns the number of PC advances executed so far.
func (m *Machine) GetTickCount() uint64 {
	return m.tickCount
}

func (m *Machine) addAndSetFlags(a, b, carryIn uint32) uint32 {
	result := a + b + carryIn
	m.flags.isCarry(a, b, carryIn)
	m.flags.isOverflow(a, b, carryIn)
	m.flags.isZero(result)
	m.flags.isNegative(result)
	return result
}

func boolToCarry(c bool) uint32 {
	if c {
		return 1
	}
	return 0
}

// execute mutates registers, flags, and the bus for one decoded
// instruction. PC has already been advanced by the standard pipeline
// increment before this is called; branch-like forms call advancePC
// again for the extra tick documented per form.
func (m *Machine) execute(ins Instruction) {
	switch ins.Kind {
	case NotImplemented:
		// intentional no-op

	case LslImm:
		original := m.registers[ins.Rs]
		k := ins.Offset
		result := original << k
		m.flags.setCarry(original&(1<<k) != 0)
		m.flags.isZero(result)
		m.flags.isNegative(result)
		m.registers[ins.Rd] = result
	case LslReg:
		original := m.registers[ins.Rd]
		k := uint32(uint8(m.registers[ins.Rs]))
		result := original << k
		m.flags.setCarry(original&(1<<k) != 0)
		m.flags.isZero(result)
		m.flags.isNegative(result)
		m.registers[ins.Rd] = result
	case LsrImm:
		original := m.registers[ins.Rs]
		k := ins.Offset
		result := original >> k
		m.flags.setCarry(original&(1<<(32-k)) != 0)
		m.flags.isZero(result)
		m.flags.isNegative(result)
		m.registers[ins.Rd] = result
	case LsrReg:
		original := m.registers[ins.Rd]
		k := uint32(uint8(m.registers[ins.Rs]))
		result := original >> k
		m.flags.setCarry(original&(1<<(32-k)) != 0)
		m.flags.isZero(result)
		m.flags.isNegative(result)
		m.registers[ins.Rd] = result
	case AsrImm:
		original := int32(m.registers[ins.Rs])
		k := ins.Offset
		result := uint32(original >> k)
		if k > 0 {
			m.flags.setCarry(uint32(original)&(1<<(k-1)) != 0)
		}
		m.flags.isZero(result)
		m.flags.isNegative(result)
		m.registers[ins.Rd] = result
	case AsrReg:
		original := int32(m.registers[ins.Rd])
		k := uint32(uint8(m.registers[ins.Rs]))
		result := uint32(original >> k)
		if k > 0 {
			m.flags.setCarry(uint32(original)&(1<<(k-1)) != 0)
		}
		m.flags.isZero(result)
		m.flags.isNegative(result)
		m.registers[ins.Rd] = result

	case AddReg:
		result := m.addAndSetFlags(m.registers[ins.Rs], m.registers[ins.Rn], 0)
		m.registers[ins.Rd] = result
	case AddImm:
		result := m.addAndSetFlags(m.registers[ins.Rs], ins.Offset, 0)
		m.registers[ins.Rd] = result
	case AddSp:
		m.registers[ins.Rd] = m.registers[rSP] + ins.Offset
	case AddPc:
		m.registers[ins.Rd] = (m.registers[rPC] &^ 3) + ins.Offset
	case Adc:
		result := m.addAndSetFlags(m.registers[ins.Rs], m.registers[ins.Rd], boolToCarry(m.flags.carry))
		m.registers[ins.Rd] = result

	case SubReg:
		result := m.addAndSetFlags(m.registers[ins.Rs], ^m.registers[ins.Rn], 1)
		m.registers[ins.Rd] = result
	case SubImm:
		result := m.addAndSetFlags(m.registers[ins.Rs], ^ins.Offset, 1)
		m.registers[ins.Rd] = result
	case Sbc:
		result := m.addAndSetFlags(m.registers[ins.Rs], ^m.registers[ins.Rd], boolToCarry(m.flags.carry))
		m.registers[ins.Rd] = result
	case Neg:
		result := m.addAndSetFlags(0, ^m.registers[ins.Rs], 1)
		m.registers[ins.Rd] = result
	case Mul:
		product := uint64(m.registers[ins.Rd]) * uint64(m.registers[ins.Rs])
		result := uint32(product)
		m.registers[ins.Rd] = result
		m.flags.isZero(result)
		m.flags.isNegative(result)
		m.flags.setCarry(product > 0xFFFFFFFF)

	case MovImm:
		m.registers[ins.Rd] = ins.Offset
		m.flags.isZero(ins.Offset)
		m.flags.isNegative(ins.Offset)
	case MovReg:
		m.registers[ins.Rd] = m.registers[ins.Rs]
		if ins.Rd == rPC {
			m.advancePC(2)
		}
	case Mvn:
		result := ^m.registers[ins.Rs]
		m.registers[ins.Rd] = result
		m.flags.isZero(result)
		m.flags.isNegative(result)

	case CmpImm:
		m.addAndSetFlags(m.registers[ins.Rd], ^ins.Offset, 1)
	case CmpReg:
		m.addAndSetFlags(m.registers[ins.Rd], ^m.registers[ins.Rs], 1)
	case Cmn:
		m.addAndSetFlags(m.registers[ins.Rd], m.registers[ins.Rs], 0)
	case Tst:
		result := m.registers[ins.Rd] & m.registers[ins.Rs]
		m.flags.isZero(result)
		m.flags.isNegative(result)

	case And:
		result := m.registers[ins.Rd] & m.registers[ins.Rs]
		m.registers[ins.Rd] = result
		m.flags.isZero(result)
		m.flags.isNegative(result)
	case Bic:
		result := m.registers[ins.Rd] &^ m.registers[ins.Rs]
		m.registers[ins.Rd] = result
		m.flags.isZero(result)
		m.flags.isNegative(result)
	case Eor:
		result := m.registers[ins.Rd] ^ m.registers[ins.Rs]
		m.registers[ins.Rd] = result
		m.flags.isZero(result)
		m.flags.isNegative(result)
	case Orr:
		result := m.registers[ins.Rd] | m.registers[ins.Rs]
		m.registers[ins.Rd] = result
		m.flags.isZero(result)
		m.flags.isNegative(result)

	case Bx:
		m.registers[rPC] = m.registers[ins.Rs] &^ 1
		m.advancePC(2)
	case Blx:
		m.registers[rLR] = (m.registers[rPC] - 2) | 1
		m.registers[rPC] = m.registers[ins.Rm] &^ 1
		m.advancePC(2)

	case LdrPc:
		addr := (m.registers[rPC] &^ 3) + ins.Offset
		m.registers[ins.Rd] = m.bus.readWord(addr)
	case LdrReg:
		addr := m.registers[ins.Rb] + m.registers[ins.Ro]
		m.registers[ins.Rd] = m.bus.readWord(addr)
	case LdrbReg:
		addr := m.registers[ins.Rb] + m.registers[ins.Ro]
		m.registers[ins.Rd] = uint32(m.bus.readByte(addr))
	case LdrImm:
		addr := m.registers[ins.Rb] + ins.Offset
		m.registers[ins.Rd] = m.bus.readWord(addr)
	case LdrbImm:
		addr := m.registers[ins.Rb] + ins.Offset
		m.registers[ins.Rd] = uint32(m.bus.readByte(addr))
	case Ldsb:
		addr := m.registers[ins.Rb] + m.registers[ins.Ro]
		b := m.bus.readByte(addr)
		result := uint32(b)
		if b&0x80 != 0 {
			result |= ^uint32(0xff)
		}
		m.registers[ins.Rd] = result
	case LdrhReg:
		addr := m.registers[ins.Rb] + m.registers[ins.Ro]
		m.registers[ins.Rd] = uint32(m.bus.readHalfword(addr))
	case LdrhImm:
		addr := m.registers[ins.Rb] + ins.Offset
		m.registers[ins.Rd] = uint32(m.bus.readHalfword(addr))
	case Ldsh:
		addr := m.registers[ins.Rb] + m.registers[ins.Ro]
		h := m.bus.readHalfword(addr)
		result := uint32(h)
		if h&0x8000 != 0 {
			result |= ^uint32(0xffff)
		}
		m.registers[ins.Rd] = result
	case Ldmia:
		addr := m.registers[ins.Rb]
		for i := uint8(0); i < 8; i++ {
			if ins.RList&(1<<i) != 0 {
				m.registers[i] = m.bus.readWord(addr)
				addr += 4
			}
		}
		m.registers[ins.Rb] = addr

	case StrReg:
		addr := m.registers[ins.Rb] + m.registers[ins.Ro]
		m.bus.writeWord(addr, m.registers[ins.Rd])
	case StrbReg:
		addr := m.registers[ins.Rb] + m.registers[ins.Ro]
		m.bus.writeByte(addr, uint8(m.registers[ins.Rd]))
	case StrImm:
		addr := m.registers[ins.Rb] + ins.Offset
		m.bus.writeWord(addr, m.registers[ins.Rd])
	case StrbImm:
		addr := m.registers[ins.Rb] + ins.Offset
		m.bus.writeByte(addr, uint8(m.registers[ins.Rd]))
	case StrhReg:
		addr := m.registers[ins.Rb] + m.registers[ins.Ro]
		m.bus.writeHalfword(addr, uint16(m.registers[ins.Rd]))
	case StrhImm:
		addr := m.registers[ins.Rb] + ins.Offset
		m.bus.writeHalfword(addr, uint16(m.registers[ins.Rd]))
	case Stmia:
		addr := m.registers[ins.Rb]
		for i := uint8(0); i < 8; i++ {
			if ins.RList&(1<<i) != 0 {
				m.bus.writeWord(addr, m.registers[i])
				addr += 4
			}
		}
		m.registers[ins.Rb] = addr

	case Sxth:
		result := m.registers[ins.Rm] & 0xffff
		if result&0x8000 != 0 {
			result |= ^uint32(0xffff)
		}
		m.registers[ins.Rd] = result
	case Sxtb:
		result := m.registers[ins.Rm] & 0xff
		if result&0x80 != 0 {
			result |= ^uint32(0xff)
		}
		m.registers[ins.Rd] = result
	case Uxth:
		m.registers[ins.Rd] = m.registers[ins.Rm] & 0xffff
	case Uxtb:
		m.registers[ins.Rd] = m.registers[ins.Rm] & 0xff
	case Rev:
		v := m.registers[ins.Rm]
		m.registers[ins.Rd] = (v&0xff000000)>>24 | (v&0x00ff0000)>>8 | (v&0x0000ff00)<<8 | (v&0x000000ff)<<24
	case Rev16:
		v := m.registers[ins.Rm]
		m.registers[ins.Rd] = (v&0xff00ff00)>>8 | (v&0x00ff00ff)<<8

	case Push:
		if ins.WithLR {
			m.pushWord(m.registers[rLR])
		}
		for i := int8(7); i >= 0; i-- {
			if ins.RList&(1<<uint8(i)) != 0 {
				m.pushWord(m.registers[i])
			}
		}
	case Pop:
		for i := uint8(0); i < 8; i++ {
			if ins.RList&(1<<i) != 0 {
				m.registers[i] = m.popWord()
			}
		}
		if ins.WithPC {
			m.registers[rPC] = m.popWord() &^ 1
			m.advancePC(2)
		}

	case Beq:
		m.branchIf(m.flags.zero, ins.Offset)
	case Bne:
		m.branchIf(!m.flags.zero, ins.Offset)
	case Bcs:
		m.branchIf(m.flags.carry, ins.Offset)
	case Bcc:
		m.branchIf(!m.flags.carry, ins.Offset)
	case Bmi:
		m.branchIf(m.flags.negative, ins.Offset)
	case Bpl:
		m.branchIf(!m.flags.negative, ins.Offset)
	case Bvs:
		m.branchIf(m.flags.overflow, ins.Offset)
	case Bvc:
		m.branchIf(!m.flags.overflow, ins.Offset)
	case Bhi:
		m.branchIf(m.flags.carry && !m.flags.zero, ins.Offset)
	case Bls:
		m.branchIf(!m.flags.carry || m.flags.zero, ins.Offset)
	case Bge:
		m.branchIf(m.flags.negative == m.flags.overflow, ins.Offset)
	case Blt:
		m.branchIf(m.flags.negative != m.flags.overflow, ins.Offset)
	case Bgt:
		m.branchIf(!m.flags.zero && m.flags.negative == m.flags.overflow, ins.Offset)
	case Ble:
		m.branchIf(m.flags.zero || m.flags.negative != m.flags.overflow, ins.Offset)
	case B:
		m.branchIf(true, ins.Offset)

	case Bl:
		if ins.First {
			m.registers[rLR] = m.registers[rPC] + ins.Offset1
		} else {
			returnAddr := m.registers[rPC]
			m.registers[rPC] = m.registers[rLR] + ins.Offset2
			m.registers[rLR] = returnAddr | 1
			m.advancePC(2)
		}

	case Dmb:
		m.advancePC(2)

	default:
		logger.Logf("arm", "execute: unhandled instruction kind %d", ins.Kind)
	}
}

func (m *Machine) branchIf(taken bool, offset uint32) {
	if !taken {
		return
	}
	m.registers[rPC] += offset
	m.advancePC(2)
}
