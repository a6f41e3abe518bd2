package notify

import "net/smtp"

// WithSendMail swaps the transport so tests never dial a relay.
func (n *SMTPNotifier) WithSendMail(f func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) *SMTPNotifier {
	n.sendMail = f
	return n
}
