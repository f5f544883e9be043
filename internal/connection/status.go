package connection

// Status is a point-in-time snapshot of a Connection's queue depths and
// in-flight state, meant for introspection/metrics surfaces rather than
// run-loop logic.
type Status struct {
	DataGroup         string
	Dirty             bool
	Sending           bool
	SendQueueDepth    int
	QueriesPending    int
	TypeFetchesPending   int
	TypeRefreshesPending int
	RecordFetchesPending int
	InFlightCalls        int
	Paginated            bool
}

// Status reports a snapshot of c's current queue depths and in-flight
// state, the data an introspection server surfaces per Connection (spec
// §5's status needs, generalised from one data group to many).
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		DataGroup:            c.dataGroup,
		Dirty:                c.sending || len(c.inFlightRemoteCalls) > 0 || len(c.queues.sendQueue) > 0,
		Sending:              c.sending,
		SendQueueDepth:       len(c.queues.sendQueue),
		QueriesPending:       len(c.queues.queriesToFetch),
		TypeFetchesPending:   countSpecs(c.queues.typesToFetch),
		TypeRefreshesPending: countSpecs(c.queues.typesToRefresh),
		RecordFetchesPending: countSpecs(c.queues.recordsToFetch) + countSpecs(c.queues.recordsToRefresh),
		InFlightCalls:        len(c.inFlightRemoteCalls),
		Paginated:            c.inFlightContext != nil,
	}
}

func countSpecs(bucket map[string]map[string]*FetchSpec) int {
	n := 0
	for _, byType := range bucket {
		n += len(byType)
	}
	return n
}
