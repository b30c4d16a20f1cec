package client

import (
	"time"

	"nano-get/application/http"
	"nano-get/application/http/semantic"
	"nano-get/session/tls"
)

type Options struct {
	Send    SendOptions
	Receive ReceiveOptions
	Timeout TimeoutOptions

	// TLS configures the https dialer when [New] builds the default dialers.
	TLS tls.Options

	// Metrics records every call when non-nil.
	Metrics *Metrics
}

var DefaultOptions = Options{
	Receive: ReceiveOptions{
		Parse:                   semantic.DefaultParseResponseOptions,
		UseReceivedReasonPhrase: true,
	},
}

type SendOptions struct {
	Encode http.EncodeOptions

	// UserAgent replaces the default User-Agent of requests built by [Client.Get].
	UserAgent string
}

type ReceiveOptions struct {
	Parse semantic.ParseResponseOptions

	// UseReceivedReasonPhrase uses reason phrase from response.
	// If false, the reason phrase will instead be filled with default value for the status code.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4-9
	UseReceivedReasonPhrase bool
}

// Zero means no limit for every field.
type TimeoutOptions struct {
	Dial  time.Duration
	Read  time.Duration
	Write time.Duration
}
