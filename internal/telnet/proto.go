package telnet

// Telnet command bytes (RFC 854/855 values; the wire protocol the
// clients speak, even when they are plain terminal emulators).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240
)

// Negotiable options this server understands.
const (
	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// Control bytes that map to logical keys.
const (
	esc       byte = 27
	backspace byte = 8
	del       byte = 127
	cr        byte = '\r'
	lf        byte = '\n'
)

// Negotiate returns the option negotiation the server opens every
// connection with: it takes over echoing and character-at-a-time
// input so individual keystrokes arrive immediately.
func Negotiate() []byte {
	return []byte{
		IAC, WILL, OptEcho,
		IAC, WILL, OptSuppressGoAhead,
		IAC, DONT, OptLinemode,
	}
}
