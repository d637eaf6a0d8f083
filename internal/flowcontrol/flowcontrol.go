// Package flowcontrol implements in-band XON/XOFF filtering for terminals
// with IXOFF set: the control bytes are stripped from the byte stream
// before it reaches the child, while driving a transmit-enable flag the
// Mediator uses to gate writes back to the terminal.
package flowcontrol

// XON resumes transmission of data from the computer to the terminal.
const XON = 0x11

// XOFF suspends transmission of data from the computer to the terminal.
const XOFF = 0x13

// Filter removes XON/XOFF bytes from buf in place, returning the new
// (possibly shorter) length and the updated transmit-enabled flag. Order of
// the remaining bytes is preserved. If buf contains no XON/XOFF bytes,
// txEnabled is returned unchanged.
//
// Only call this when the TTY's IXOFF flag is currently set; an IXOFF-less
// terminal's XON/XOFF bytes are ordinary data.
func Filter(buf []byte, txEnabled bool) (n int, newTxEnabled bool) {
	cursor := 0
	for _, b := range buf {
		switch b {
		case XON:
			txEnabled = true
		case XOFF:
			txEnabled = false
		default:
			buf[cursor] = b
			cursor++
		}
	}
	return cursor, txEnabled
}
