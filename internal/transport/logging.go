// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"strings"

	"rtaudio/internal/analysis"
	"rtaudio/internal/log"
)

// LoggingTransport implements the Transport interface by logging data to the console.
type LoggingTransport struct {
	log *log.Logger
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	lt := &LoggingTransport{log: log.New("transport/log")}
	lt.log.Debugf("using logging transport")
	return lt
}

// Send logs the received data at info level. Level readings are printed in dB.
func (lt *LoggingTransport) Send(data any) error {
	switch v := data.(type) {
	case LevelMessage:
		lt.log.Infof("peak %6.1f dB  rms %6.1f dB", v.PeakDB, v.RMSDB)
	case BandsMessage:
		var sb strings.Builder
		for _, band := range analysis.StandardBands {
			fmt.Fprintf(&sb, " %s %.1f", band.Name, v.Bands[band.Name])
		}
		lt.log.Infof("bands%s", sb.String())
	case ParamsMessage:
		lt.log.Infof("params %v", v.Params)
	default:
		lt.log.Infof("%T: %+v", data, data)
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	lt.log.Debugf("close called")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
