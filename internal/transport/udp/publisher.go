// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"rtaudio/internal/log"
	"rtaudio/pkg/meter"
)

// PacketSize is the encoded size of a Packet.
const PacketSize = 20

// DefaultInterval is used when NewUDPPublisher gets a non-positive interval.
const DefaultInterval = 33 * time.Millisecond

/*
Packet is one level reading on the wire (BigEndian).

|<-- 4 Bytes -->|<---- 8 Bytes ---->|<-- 4 Bytes -->|<-- 4 Bytes -->|
+---------------+-------------------+---------------+---------------+
|   Sequence    |     Timestamp     |    Peak dB    |    RMS dB     |
|   (uint32)    |  (int64, unix ns) |   (float32)   |   (float32)   |
+---------------+-------------------+---------------+---------------+
*/
type Packet struct {
	Seq       uint32
	Timestamp int64
	PeakDB    float32
	RMSDB     float32
}

// Encode writes p into buf, replacing its contents.
func (p Packet) Encode(buf *bytes.Buffer) error {
	buf.Reset()
	return binary.Write(buf, binary.BigEndian, p)
}

// DecodePacket parses a packet produced by Encode.
func DecodePacket(data []byte) (Packet, error) {
	var p Packet
	if len(data) != PacketSize {
		return p, fmt.Errorf("udp: packet is %d bytes, want %d", len(data), PacketSize)
	}
	err := binary.Read(bytes.NewReader(data), binary.BigEndian, &p)
	return p, err
}

// PacketSender delivers encoded packets. *UDPSender implements it.
type PacketSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically reads the latest meter level, packs it into a
// Packet and sends it. It runs in a separate goroutine managed by Start and
// Stop.
type UDPPublisher struct {
	sender   PacketSender
	source   *meter.Latest
	interval time.Duration
	log      *log.Logger

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum  uint32
	packetBuffer *bytes.Buffer
}

// NewUDPPublisher creates a publisher reading from source. If interval is
// not positive, DefaultInterval is used.
func NewUDPPublisher(interval time.Duration, sender PacketSender, source *meter.Latest) (*UDPPublisher, error) {
	if sender == nil {
		return nil, errors.New("udp publisher: sender cannot be nil")
	}
	if source == nil {
		return nil, errors.New("udp publisher: level source cannot be nil")
	}

	logger := log.New("transport/udp")
	if interval <= 0 {
		interval = DefaultInterval
		logger.Warnf("invalid interval, defaulting to %s", interval)
	}

	return &UDPPublisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		log:          logger,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Start begins the periodic publishing process. Subsequent calls are no-ops
// while running.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		p.log.Warnf("start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.Infof("publishing every %s", p.interval)
		for {
			select {
			case now := <-ticker.C:
				p.publish(now)
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to
// exit. It is safe to call Stop multiple times.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Debugf("publisher stopped after %d packets", p.sequenceNum)
	return nil
}

// publish sends one packet stamped with now.
func (p *UDPPublisher) publish(now time.Time) {
	level := p.source.Load()
	p.sequenceNum++

	pkt := Packet{
		Seq:       p.sequenceNum,
		Timestamp: now.UnixNano(),
		PeakDB:    level.PeakDB,
		RMSDB:     level.RMSDB,
	}
	if err := pkt.Encode(p.packetBuffer); err != nil {
		p.log.Errorf("packing packet %d: %v", pkt.Seq, err)
		return
	}
	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		// ICMP refusals are normal while no receiver listens.
		p.log.Debugf("packet %d: %v", pkt.Seq, err)
	}
}

// Close implements the io.Closer interface. It stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*UDPPublisher)(nil)
