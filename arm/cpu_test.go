package arm

import (
	"encoding/binary"
	"testing"
)

// assembleProgram builds a flat binary image: a vector table (SP at
// +0x0000, reset PC at +0x0004, SysTick vector at +0x003C, DMAC vector
// at +0x0058) followed by code starting at +0x0008.
func assembleProgram(sp, systickVector, dmacVector uint32, code ...uint16) []byte {
	prog := make([]byte, 0x5C+4+len(code)*2)
	binary.LittleEndian.PutUint32(prog[0x00:], sp)
	binary.LittleEndian.PutUint32(prog[0x04:], 0x0008)
	binary.LittleEndian.PutUint32(prog[0x3C:], systickVector)
	binary.LittleEndian.PutUint32(prog[0x58:], dmacVector)
	for i, instr := range code {
		binary.LittleEndian.PutUint16(prog[0x0008+i*2:], instr)
	}
	return prog
}

func TestResetPostcondition(t *testing.T) {
	prog := assembleProgram(0x20001000, 0xFFFFFFFE, 0xFFFFFFFE, 0xE7FF)
	m := New(1)
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatal(err)
	}
	if m.registers[rSP] != 0x20001000 {
		t.Errorf("SP = 0x%08X, want 0x20001000", m.registers[rSP])
	}
	if m.registers[rPC] != 0x0008+2 {
		t.Errorf("PC = 0x%08X, want 0x0000000A", m.registers[rPC])
	}
	if m.registers[rLR] != 0xFFFFFFFF {
		t.Errorf("LR = 0x%08X, want 0xFFFFFFFF", m.registers[rLR])
	}
	if m.systickCounter != systickPeriod {
		t.Errorf("systick counter = %d, want %d", m.systickCounter, systickPeriod)
	}
}

func TestMinimalLsl(t *testing.T) {
	// MOVS R0, #1 ; LSLS R0, R0, #4 ; B .
	prog := assembleProgram(0x20001000, 0xFFFFFFFE, 0xFFFFFFFE, 0x2001, 0x0100, 0xE7FF)
	m := New(1)
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatal(err)
	}
	m.Step()
	m.Step()
	if m.registers[0] != 16 {
		t.Errorf("R0 = %d, want 16", m.registers[0])
	}
	if m.flags.zero || m.flags.negative {
		t.Errorf("flags = %s, want z and n clear", m.flags.String())
	}
}

func TestAddOverflow(t *testing.T) {
	// MOVS R0,#0x80 ; LSLS R0,R0,#24 ; MOVS R1,#1 ; LSLS R1,R1,#31 ; ADDS R0,R0,R1
	prog := assembleProgram(0x20001000, 0xFFFFFFFE, 0xFFFFFFFE,
		0x2080, 0x0600, 0x2101, 0x07C9, 0x1840)
	m := New(1)
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		m.Step()
	}
	if m.registers[0] != 0 {
		t.Errorf("R0 = 0x%08X, want 0", m.registers[0])
	}
	if !m.flags.overflow || m.flags.negative || !m.flags.zero || !m.flags.carry {
		t.Errorf("flags = %s, want V and Z and C set, N clear", m.flags.String())
	}
}

func TestLslImmediateProperty(t *testing.T) {
	for k := uint32(0); k < 32; k++ {
		for _, v := range []uint32{0, 1, 0x12345678, 0xFFFFFFFF, 1 << 31} {
			m := New(1)
			m.registers[1] = v
			m.execute(Instruction{Kind: LslImm, Rs: 1, Rd: 0, Offset: k})

			want := v << k
			if m.registers[0] != want {
				t.Fatalf("LSL #%d of 0x%08X = 0x%08X, want 0x%08X", k, v, m.registers[0], want)
			}
			if m.flags.zero != (want == 0) {
				t.Errorf("Z flag mismatch for v=0x%08X k=%d", v, k)
			}
			if m.flags.negative != (want&0x80000000 != 0) {
				t.Errorf("N flag mismatch for v=0x%08X k=%d", v, k)
			}
			wantCarry := v&(1<<k) != 0
			if m.flags.carry != wantCarry {
				t.Errorf("C flag mismatch for v=0x%08X k=%d: got %v want %v", v, k, m.flags.carry, wantCarry)
			}
		}
	}
}

func TestSramRoundTrip(t *testing.T) {
	m := New(1)
	addr := uint32(sramBase + 0x10)
	m.bus.writeWord(addr, 0xDEADBEEF)
	if got := m.bus.readWord(addr); got != 0xDEADBEEF {
		t.Errorf("word round-trip: got 0x%08X", got)
	}
	m.bus.writeByte(addr, 0x42)
	if got := m.bus.readByte(addr); got != 0x42 {
		t.Errorf("byte round-trip: got 0x%02X", got)
	}
	m.bus.writeHalfword(addr, 0xBEEF)
	if got := m.bus.readHalfword(addr); got != 0xBEEF {
		t.Errorf("halfword round-trip: got 0x%04X", got)
	}
}

func TestFlashWritesAreDiscarded(t *testing.T) {
	m := New(1)
	before := m.bus.readByte(0x100)
	m.bus.writeByte(0x100, 0x99)
	after := m.bus.readByte(0x100)
	if after != before {
		t.Errorf("flash write was not discarded: before=0x%02X after=0x%02X", before, after)
	}
}

func TestRevInvolution(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x12345678, 0xFFFFFFFF, 0xAABBCCDD} {
		m := New(1)
		m.registers[1] = v
		m.execute(Instruction{Kind: Rev, Rd: 0, Rm: 1})
		m.registers[1] = m.registers[0]
		m.execute(Instruction{Kind: Rev, Rd: 0, Rm: 1})
		if m.registers[0] != v {
			t.Errorf("REV(REV(0x%08X)) = 0x%08X", v, m.registers[0])
		}
	}
}

func TestRev16Involution(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x12345678, 0xFFFFFFFF, 0xAABBCCDD} {
		m := New(1)
		m.registers[1] = v
		m.execute(Instruction{Kind: Rev16, Rd: 0, Rm: 1})
		m.registers[1] = m.registers[0]
		m.execute(Instruction{Kind: Rev16, Rd: 0, Rm: 1})
		if m.registers[0] != v {
			t.Errorf("REV16(REV16(0x%08X)) = 0x%08X", v, m.registers[0])
		}
	}
}

func TestBusCompatibilityAliases(t *testing.T) {
	m := New(1)
	if got := m.bus.readWord(hackOscReady); got != 0xD2 {
		t.Errorf("oscillator-ready word read = 0x%08X, want 0xD2", got)
	}
	if got := m.bus.readByte(hackADCReady); got != 1 {
		t.Errorf("ADC-ready byte read = %d, want 1", got)
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	m := New(1)
	m.registers[rSP] = sramBase + 0x200
	for i := 0; i < 8; i++ {
		m.registers[i] = uint32(0x1000 + i)
	}
	m.registers[rLR] = 0xAAAAAAAA
	m.flags = Flags{negative: true, carry: true}
	originalSP := m.registers[rSP]
	originalFlags := m.flags

	m.execute(Instruction{Kind: Push, RList: 0xFF, WithLR: true})
	for i := 0; i < 8; i++ {
		m.registers[i] = 0
	}
	m.registers[rLR] = 0

	m.execute(Instruction{Kind: Pop, RList: 0xFF})
	m.registers[rLR] = m.popWord()

	for i := 0; i < 8; i++ {
		if m.registers[i] != uint32(0x1000+i) {
			t.Errorf("R%d = 0x%08X after round-trip", i, m.registers[i])
		}
	}
	if m.registers[rLR] != 0xAAAAAAAA {
		t.Errorf("LR = 0x%08X after round-trip", m.registers[rLR])
	}
	if m.registers[rSP] != originalSP {
		t.Errorf("SP = 0x%08X, want 0x%08X", m.registers[rSP], originalSP)
	}
	if m.flags != originalFlags {
		t.Errorf("flags changed by PUSH/POP: %s vs %s", m.flags.String(), originalFlags.String())
	}
}

func TestBlPairDecodeAndExecute(t *testing.T) {
	// BL +4 encoded as a first/second halfword pair.
	first := uint16(0b1111000000000000)
	second := uint16(0b1111100000000010)
	ins1, pair := Decode(first, second)
	if !pair {
		t.Fatalf("expected BL pair")
	}
	ins2 := decodeBlSecond(second)

	m := New(1)
	m.registers[rPC] = 0x100
	m.execute(ins1)
	m.execute(ins2)

	wantTarget := (uint32(0x100) + ins1.Offset1) + ins2.Offset2 + 2
	if m.registers[rPC] != wantTarget {
		t.Errorf("PC = 0x%08X, want 0x%08X", m.registers[rPC], wantTarget)
	}
	if m.registers[rLR] != (0x100 | 1) {
		t.Errorf("LR = 0x%08X, want 0x%08X", m.registers[rLR], uint32(0x100|1))
	}
}

func TestExceptionRoundTrip(t *testing.T) {
	prog := assembleProgram(0x20001000, 0x20002000, 0xFFFFFFFE, 0xE7FF)
	m := New(1)
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		m.registers[i] = uint32(0x1111 * (i + 1))
	}
	m.registers[rIP] = 0x22222222
	m.flags = Flags{negative: true, overflow: true}
	preR0, preR1, preR2, preR3 := m.registers[0], m.registers[1], m.registers[2], m.registers[3]
	preR12 := m.registers[rIP]
	preLR := m.registers[rLR]
	prePC := m.registers[rPC]
	preFlags := m.flags

	m.bus.DMAC.Pending = true
	m.Step()
	if m.registers[rPC] != m.dmacVector+2 {
		t.Fatalf("expected PC at DMAC vector, got 0x%08X", m.registers[rPC])
	}
	if m.registers[rLR] != excReturnMagic {
		t.Fatalf("expected LR = EXC_RETURN magic, got 0x%08X", m.registers[rLR])
	}

	m.registers[rPC] = excReturnTrigger + 2
	m.Step()

	if m.registers[0] != preR0 || m.registers[1] != preR1 || m.registers[2] != preR2 || m.registers[3] != preR3 {
		t.Errorf("caller-saved registers not restored: %v", m.registers[:4])
	}
	if m.registers[rIP] != preR12 {
		t.Errorf("R12 = 0x%08X, want 0x%08X", m.registers[rIP], preR12)
	}
	if m.registers[rLR] != preLR {
		t.Errorf("LR = 0x%08X, want 0x%08X", m.registers[rLR], preLR)
	}
	if m.registers[rPC] != prePC {
		t.Errorf("PC = 0x%08X, want 0x%08X", m.registers[rPC], prePC)
	}
	if m.flags != preFlags {
		t.Errorf("flags = %s, want %s", m.flags.String(), preFlags.String())
	}
}

func TestSysTickCadence(t *testing.T) {
	prog := assembleProgram(0x20001000, 0x20002000, 0xFFFFFFFE, 0xE7FF)
	m := New(1)
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatal(err)
	}

	entries := 0
	for i := 0; i < 60000 && entries < 2; i++ {
		before := m.registers[rPC]
		m.Step()
		if before != m.registers[rPC] && m.registers[rPC] == m.systickVector+2 {
			entries++
		}
	}
	if entries != 2 {
		t.Errorf("expected exactly 2 SysTick entries within budget, got %d", entries)
	}
}

func TestDisplayFramebufferScenario(t *testing.T) {
	m := New(1)

	cmd := func(b uint8) {
		m.bus.writeWord(portbBase+0x10, 0)
		m.bus.writeByte(sercom4Base+0x28, b)
	}
	data := func(b uint8) {
		m.bus.writeWord(portbBase+0x10, 1<<23)
		m.bus.writeByte(sercom4Base+0x28, b)
	}

	cmd(0x2A) // CASET
	data(0x00)
	data(0x00)
	data(0x00)
	data(0x00)
	cmd(0x2B) // RASET
	data(0x00)
	data(0x00)
	data(0x00)
	data(0x00)
	cmd(0x2C) // RAMWR
	data(0xF8)
	data(0x00)

	screen := m.ScreenData()
	if screen[0] != 0xFF0000F8 {
		t.Errorf("framebuffer[0] = 0x%08X, want 0xFF0000F8", screen[0])
	}
}

func TestDmaTriggerReachesDisplayAndRaisesPending(t *testing.T) {
	m := New(1)

	srcEnd := uint32(sramBase + 0x40)
	m.bus.writeByte(srcEnd-4, 0xAA)
	m.bus.writeByte(srcEnd-3, 0xBB)
	m.bus.writeByte(srcEnd-2, 0xCC)
	m.bus.writeByte(srcEnd-1, 0xDD)

	descAddr := uint32(sramBase + 0x100)
	m.bus.writeHalfword(descAddr+2, 4)
	m.bus.writeWord(descAddr+4, srcEnd)
	m.bus.writeWord(descAddr+8, sercom4Base+0x28)
	m.bus.writeWord(descAddr+12, 0)

	// Open a RAMWR and raise D/C so the DMA'd bytes arrive as pixel data.
	m.bus.writeWord(portbBase+0x10, 0)
	m.bus.writeByte(sercom4Base+0x28, 0x2C)
	m.bus.writeWord(portbBase+0x10, 1<<23)

	m.bus.writeWord(dmacBase+0x34, descAddr)
	m.bus.writeByte(dmacBase+0x3F, 0)
	m.bus.writeByte(dmacBase+0x40, 0b10)

	if !m.bus.DMAC.Pending {
		t.Fatalf("expected DMAC pending after trigger")
	}
	// The default window is the single pixel (0,0), so pixel 0xCCDD
	// overwrites pixel 0xAABB there.
	if got := m.ScreenData()[0]; got != 0xFFE898C8 {
		t.Errorf("framebuffer[0] = 0x%08X, want 0xFFE898C8 (pixel 0xCCDD)", got)
	}

	prog := assembleProgram(0x20001000, 0xFFFFFFFE, 0x20003000, 0xE7FF)
	if err := m.LoadProgram(prog, 0); err != nil {
		t.Fatal(err)
	}
	m.bus.DMAC.Pending = true
	m.Step()
	if m.registers[rPC] != m.dmacVector+2 {
		t.Errorf("expected DMAC vector entry, PC = 0x%08X", m.registers[rPC])
	}
}
