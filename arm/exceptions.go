package arm

const (
	systickPeriod = 20000

	// excReturnTrigger is the value PC-2 takes once LR has been loaded
	// with the EXC_RETURN magic and a branch to it has been executed;
	// it is what the fetch-address helper compares against to detect
	// "this step is actually an exception return", not an instruction.
	excReturnTrigger = 0xFFFFFFF8
	// excReturnMagic is what LR is set to on exception entry.
	excReturnMagic = 0xFFFFFFF9
)

// pushWord pre-decrements SP by 4 and stores v, so repeated calls build
// a full-descending stack frame with the first word pushed ending up
// deepest (lowest address).
func (m *Machine) pushWord(v uint32) {
	m.registers[rSP] -= 4
	m.bus.writeWord(m.registers[rSP], v)
}

func (m *Machine) popWord() uint32 {
	v := m.bus.readWord(m.registers[rSP])
	m.registers[rSP] += 4
	return v
}

// enterException pushes the eight-word exception frame in the order
// flags-word, PC, LR, R12, R3, R2, R1, R0, redirects PC to vector,
// loads LR with the EXC_RETURN magic, and performs the pipeline
// increment.
func (m *Machine) enterException(vector uint32) {
	m.pushWord(m.flags.toWord())
	m.pushWord(m.registers[rPC])
	m.pushWord(m.registers[rLR])
	m.pushWord(m.registers[rIP])
	m.pushWord(m.registers[3])
	m.pushWord(m.registers[2])
	m.pushWord(m.registers[1])
	m.pushWord(m.registers[0])

	m.registers[rPC] = vector
	m.registers[rLR] = excReturnMagic
	m.advancePC(2)
}

// tryExcReturn reports whether the current PC is shaped like an
// EXC_RETURN branch target, and if so unwinds the exception frame:
// R0, R1, R2, R3, R12, LR, PC, flags-word, in that pop order. Called
// in a loop at step entry so a chained return (exception during
// exception) unwinds completely before the next real fetch.
func (m *Machine) tryExcReturn() bool {
	if m.registers[rPC]-2 != excReturnTrigger {
		return false
	}

	m.registers[0] = m.popWord()
	m.registers[1] = m.popWord()
	m.registers[2] = m.popWord()
	m.registers[3] = m.popWord()
	m.registers[rIP] = m.popWord()
	m.registers[rLR] = m.popWord()
	m.registers[rPC] = m.popWord()
	m.flags.fromWord(m.popWord())
	return true
}
