package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) HTTPRequestCompleted(method, route string, status int, d time.Duration) {}
func (n *NoopSink) GatewayRequestCompleted(operation, statusClass string, d time.Duration) {}
func (n *NoopSink) JobCreated()                                                          {}
func (n *NoopSink) PaymentOrderCreated(amount int64)                                     {}
func (n *NoopSink) PaymentVerification(outcome string)                                   {}
func (n *NoopSink) OrphanedPaymentsUpdate(count int)                                     {}
func (n *NoopSink) ActivationsRepaired(count int)                                        {}
func (n *NoopSink) JobsExpired(count int)                                                {}
func (n *NoopSink) LeaderStatusChanged(isLeader bool)                                    {}
func (n *NoopSink) LeaderAcquired()                                                      {}
func (n *NoopSink) LeaderLost(reason string)                                             {}

var _ Sink = (*NoopSink)(nil)
