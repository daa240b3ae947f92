package mqtt

import "github.com/rs/zerolog/log"

// pendingMsg is a serialized message held for replay after reconnection.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO that keeps the newest messages while
// disconnected. Not safe for concurrent use; caller must synchronize.
type outbox struct {
	buf     []pendingMsg
	head    int // next write position
	count   int
	dropped int  // total messages discarded since creation
	warned  bool // overflow already logged since last drain
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{buf: make([]pendingMsg, capacity)}
}

func (o *outbox) enqueue(msg pendingMsg) {
	capacity := len(o.buf)
	if o.count == capacity {
		if !o.warned {
			log.Warn().Int("capacity", capacity).Msg("mqtt: outbox full, dropping oldest")
			o.warned = true
		}
		o.dropped++
		// head points at the oldest entry once full
		o.buf[o.head] = msg
		o.head = (o.head + 1) % capacity
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % capacity
	o.count++
}

// drain returns the held messages oldest first and empties the outbox.
func (o *outbox) drain() []pendingMsg {
	if o.count == 0 {
		return nil
	}

	capacity := len(o.buf)
	out := make([]pendingMsg, 0, o.count)
	start := (o.head - o.count + capacity) % capacity
	for i := 0; i < o.count; i++ {
		out = append(out, o.buf[(start+i)%capacity])
		o.buf[(start+i)%capacity] = pendingMsg{}
	}

	o.count = 0
	o.head = 0
	o.warned = false
	return out
}

func (o *outbox) len() int {
	return o.count
}
