package f2xtcp

import "sync/atomic"

// ConnectionMetrics contains atomic metrics for a TCP connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc, see package f2xprom.
type ConnectionMetrics struct {
	// FrameSendCount indicates the number of frames written to the socket.
	FrameSendCount atomic.Uint64
	// FrameRecvCount indicates the number of frames read from the socket.
	FrameRecvCount atomic.Uint64
	// FrameErrCount indicates the number of frame read and write errors.
	FrameErrCount atomic.Uint64
	// FaultCount indicates the number of faults reported to the fault handler.
	FaultCount atomic.Uint64

	// ConnRetryGauge indicates the number of failed dial attempts since the last successful connect.
	ConnRetryGauge atomic.Uint32
}

func (m *ConnectionMetrics) incFrameSendCount() {
	m.FrameSendCount.Add(1)
}

func (m *ConnectionMetrics) incFrameRecvCount() {
	m.FrameRecvCount.Add(1)
}

func (m *ConnectionMetrics) incFrameErrCount() {
	m.FrameErrCount.Add(1)
}

func (m *ConnectionMetrics) incFaultCount() {
	m.FaultCount.Add(1)
}

func (m *ConnectionMetrics) incConnRetryGauge() {
	m.ConnRetryGauge.Add(1)
}

func (m *ConnectionMetrics) resetConnRetryGauge() {
	m.ConnRetryGauge.Store(0)
}
