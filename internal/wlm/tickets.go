package wlm

// UseJobTicket reports whether ticket-based admission control is enabled
// for this model. Fixed at construction.
func (m *Model) UseJobTicket() bool { return m.useJobTicket }

// IncNumJobTickets returns a ticket to the pool and reports the new count.
// The batch-assembly path calls this when a consumer starts waiting for new
// work; admission consumes the ticket via GetJobTickets.
func (m *Model) IncNumJobTickets() int { return int(m.numJobTickets.Add(1)) }

// DecNumJobTickets removes a ticket from the pool and reports the new count.
func (m *Model) DecNumJobTickets() int { return int(m.numJobTickets.Add(-1)) }

// NumJobTickets reads the current ticket count.
func (m *Model) NumJobTickets() int { return int(m.numJobTickets.Load()) }

// GetJobTickets atomically takes one ticket. The check and the decrement
// form a single compare-and-swap so the count never goes negative under
// concurrent admission.
func (m *Model) GetJobTickets() bool {
	for {
		n := m.numJobTickets.Load()
		if n <= 0 {
			return false
		}
		if m.numJobTickets.CompareAndSwap(n, n-1) {
			return true
		}
	}
}
