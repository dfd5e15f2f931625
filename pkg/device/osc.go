package device

import (
	"fmt"
	"net"

	"github.com/hypebeast/go-osc/osc"
	"go.uber.org/zap"

	"github.com/midiglue/midiglue/pkg/source"
)

// OscDevice serves inbound OSC on a UDP socket and sends feedback to a
// configured peer, implementing engine.FeedbackSender.
type OscDevice struct {
	log    *zap.Logger
	sink   EventSink
	conn   net.PacketConn
	server *osc.Server
	client *osc.Client
}

// NewOscDevice binds listenAddr ("0.0.0.0:8000") for input. feedbackHost
// and feedbackPort name the peer for feedback; an empty host disables
// the client side.
func NewOscDevice(log *zap.Logger, sink EventSink, listenAddr, feedbackHost string, feedbackPort int) (*OscDevice, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("device: osc listen on %s: %w", listenAddr, err)
	}
	d := &OscDevice{log: log, sink: sink, conn: conn}

	dispatcher := osc.NewStandardDispatcher()
	if err := dispatcher.AddMsgHandler("*", d.handle); err != nil {
		conn.Close()
		return nil, fmt.Errorf("device: osc dispatcher: %w", err)
	}
	d.server = &osc.Server{Addr: listenAddr, Dispatcher: dispatcher}
	if feedbackHost != "" {
		d.client = osc.NewClient(feedbackHost, feedbackPort)
	}

	go func() {
		if err := d.server.Serve(conn); err != nil {
			log.Debug("osc server stopped", zap.Error(err))
		}
	}()
	log.Info("osc device opened",
		zap.String("listen", listenAddr),
		zap.String("feedback_host", feedbackHost))
	return d, nil
}

// handle runs on the server goroutine and converts each message into an
// engine event.
func (d *OscDevice) handle(msg *osc.Message) {
	ev := ConvertOscMessage(msg)
	d.sink.InjectEvent(source.Event{Kind: source.EventOsc, Osc: ev})
}

// ConvertOscMessage maps a wire message onto the engine's event type.
func ConvertOscMessage(msg *osc.Message) *source.OscEvent {
	ev := &source.OscEvent{Address: msg.Address}
	if len(msg.Arguments) > 0 {
		ev.Args = make([]source.OscArg, 0, len(msg.Arguments))
	}
	for _, arg := range msg.Arguments {
		switch v := arg.(type) {
		case float32:
			ev.Args = append(ev.Args, source.OscArg{Kind: source.OscFloat, Float: float64(v)})
		case float64:
			ev.Args = append(ev.Args, source.OscArg{Kind: source.OscFloat, Float: v})
		case int32:
			ev.Args = append(ev.Args, source.OscArg{Kind: source.OscInt, Int: int64(v)})
		case int64:
			ev.Args = append(ev.Args, source.OscArg{Kind: source.OscInt, Int: v})
		case bool:
			ev.Args = append(ev.Args, source.OscArg{Kind: source.OscBool, Bool: v})
		case string:
			ev.Args = append(ev.Args, source.OscArg{Kind: source.OscString, Str: v})
		default:
			ev.Args = append(ev.Args, source.OscArg{Kind: source.OscNil})
		}
	}
	return ev
}

// SendFeedback sends OSC feedback to the configured peer. Non-OSC
// payloads and missing peers are ignored.
func (d *OscDevice) SendFeedback(msg source.FeedbackMessage) {
	if msg.Kind != source.FeedbackOsc || d.client == nil {
		return
	}
	out := osc.NewMessage(msg.Osc.Address)
	for _, arg := range msg.Osc.Args {
		switch arg.Kind {
		case source.OscFloat:
			out.Append(float32(arg.Float))
		case source.OscInt:
			out.Append(int32(arg.Int))
		case source.OscBool:
			out.Append(arg.Bool)
		case source.OscString:
			out.Append(arg.Str)
		}
	}
	if err := d.client.Send(out); err != nil {
		d.log.Warn("osc send failed",
			zap.String("address", msg.Osc.Address),
			zap.Error(err))
	}
}

// Close shuts the UDP socket down, stopping the server goroutine.
func (d *OscDevice) Close() error {
	return d.conn.Close()
}
