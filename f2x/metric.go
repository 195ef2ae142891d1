package f2x

import "sync/atomic"

// TransportMetrics contains atomic metrics for a transport.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc, see package f2xprom.
type TransportMetrics struct {
	// RequestSendCount indicates the number of requests sent.
	RequestSendCount atomic.Uint64
	// ResponseSendCount indicates the number of responses sent to Foundation requests.
	ResponseSendCount atomic.Uint64
	// SendErrCount indicates the number of frames the raw transport failed to send.
	SendErrCount atomic.Uint64

	// ReplyRecvCount indicates the number of replies received.
	ReplyRecvCount atomic.Uint64
	// MessageRecvCount indicates the number of unsolicited messages received.
	MessageRecvCount atomic.Uint64

	// StatusErrCount indicates the number of received frames with a non-zero status code.
	StatusErrCount atomic.Uint64
	// DecodeErrCount indicates the number of frames that failed header or payload decoding.
	DecodeErrCount atomic.Uint64
	// RoutingErrCount indicates the number of frames that could not be dispatched to a handler.
	RoutingErrCount atomic.Uint64

	// FaultCount indicates the number of raw transport faults.
	FaultCount atomic.Uint64

	// InflightCount indicates the number of requests waiting for a reply.
	InflightCount atomic.Int64
}

func (m *TransportMetrics) incRequestSendCount()  { m.RequestSendCount.Add(1) }
func (m *TransportMetrics) incResponseSendCount() { m.ResponseSendCount.Add(1) }
func (m *TransportMetrics) incSendErrCount()      { m.SendErrCount.Add(1) }
func (m *TransportMetrics) incReplyRecvCount()    { m.ReplyRecvCount.Add(1) }
func (m *TransportMetrics) incMessageRecvCount()  { m.MessageRecvCount.Add(1) }
func (m *TransportMetrics) incStatusErrCount()    { m.StatusErrCount.Add(1) }
func (m *TransportMetrics) incDecodeErrCount()    { m.DecodeErrCount.Add(1) }
func (m *TransportMetrics) incRoutingErrCount()   { m.RoutingErrCount.Add(1) }
func (m *TransportMetrics) incFaultCount()        { m.FaultCount.Add(1) }
func (m *TransportMetrics) incInflightCount()     { m.InflightCount.Add(1) }
func (m *TransportMetrics) decInflightCount()     { m.InflightCount.Add(-1) }
