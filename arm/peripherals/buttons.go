package peripherals

// Buttons models the chip-select-gated shifter that presents the
// current button state to firmware as if it were a SERCOM4 receive
// byte.
type Buttons struct {
	ButtonData uint8
}

// SetState records the button byte supplied by the host for the
// current Run call.
func (b *Buttons) SetState(state uint8) {
	b.ButtonData = state
}

// Notify is called for every SERCOM4 byte event. If chipSelectAsserted
// is true (PORTB bit 3 clear), the shifter answers by overwriting the
// SERCOM data register with the current button byte.
func (b *Buttons) Notify(sercom *Sercom, chipSelectAsserted bool) {
	if chipSelectAsserted {
		sercom.Data = b.ButtonData
	}
}
