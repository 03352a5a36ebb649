package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
)

// TLSFingerprinter dials HTTPS connections with a uTLS ClientHello instead of
// the Go default. The hello never offers ALPN, so the connection always speaks
// HTTP/1.1 and stays compatible with http.Transport.
type TLSFingerprinter struct {
	dialer  *net.Dialer
	helloID utls.ClientHelloID
}

// NewTLSFingerprinter creates a fingerprinter with a randomized ClientHello
func NewTLSFingerprinter() *TLSFingerprinter {
	return &TLSFingerprinter{
		dialer: &net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		},
		helloID: utls.HelloRandomizedNoALPN,
	}
}

// DialTLSContext opens a TCP connection to addr and completes the uTLS handshake.
func (tf *TLSFingerprinter) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}

	raw, err := tf.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	conn := utls.UClient(raw, &utls.Config{ServerName: host}, tf.helloID)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}

	return conn, nil
}

// CreateTransport returns a transport whose HTTPS connections use the
// fingerprinter. Connections through an HTTPS proxy tunnel are not fingerprinted.
func (tf *TLSFingerprinter) CreateTransport() *http.Transport {
	transport := newBaseTransport(nil)
	transport.DialTLSContext = tf.DialTLSContext
	return transport
}
