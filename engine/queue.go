package engine

// CommandQueue buffers commands by the tick they take effect on, per
// spec.md §4.2. It is private to a single engine instance (client
// predicted/committed side, or a partition executor's per-game state) —
// never shared across goroutines without external synchronization.
type CommandQueue struct {
	schedulingDelay uint32
	pending         map[uint32][]CommandMessage
	seen            map[CommandID]struct{}
	localSeq        map[uint64]uint32
}

// NewCommandQueue creates an empty queue. schedulingDelay is read from the
// game's GameType (spec.md §9 open question: configurable per game type).
func NewCommandQueue(schedulingDelay uint32) *CommandQueue {
	return &CommandQueue{
		schedulingDelay: schedulingDelay,
		pending:         make(map[uint32][]CommandMessage),
		seen:            make(map[CommandID]struct{}),
		localSeq:        make(map[uint64]uint32),
	}
}

// EffectiveTick computes the tick a command actually takes effect on:
// max(command.tick, state.tick + scheduling_delay).
func (q *CommandQueue) EffectiveTick(cmd CommandMessage, currentTick uint32) uint32 {
	floor := currentTick + q.schedulingDelay
	if cmd.ClientID.Tick > floor {
		return cmd.ClientID.Tick
	}
	return floor
}

// insert enqueues cmd at its effective tick, deduplicating on ClientID.
// Returns false if the command was a duplicate.
func (q *CommandQueue) insert(cmd CommandMessage, currentTick uint32) bool {
	if _, dup := q.seen[cmd.ClientID]; dup {
		return false
	}
	q.seen[cmd.ClientID] = struct{}{}
	tick := q.EffectiveTick(cmd, currentTick)
	q.pending[tick] = append(q.pending[tick], cmd)
	return true
}

// SubmitLocal tags a command with the next client sequence number for
// userID and enqueues it (predicted-engine side only; spec.md §4.2).
func (q *CommandQueue) SubmitLocal(userID uint64, snakeID int, tick uint32, cmd Command) CommandMessage {
	seq := q.localSeq[userID]
	q.localSeq[userID] = seq + 1
	msg := CommandMessage{
		ClientID: CommandID{Tick: tick, UserID: userID, Sequence: seq},
		SnakeID:  snakeID,
		Command:  cmd,
	}
	q.insert(msg, tick)
	return msg
}

// AcceptServer inserts a server-confirmed command message, idempotent on
// duplicate ClientID (spec.md §4.2 "accept_server").
func (q *CommandQueue) AcceptServer(msg CommandMessage, currentTick uint32) {
	q.insert(msg, currentTick)
}

// Drain removes and returns every command scheduled for exactly tick, in
// insertion order.
func (q *CommandQueue) Drain(tick uint32) []CommandMessage {
	cmds := q.pending[tick]
	delete(q.pending, tick)
	return cmds
}

// PendingAfter reports every still-queued command whose ClientID.Sequence
// for userID has not appeared as a confirmed server command — used by the
// prediction engine to decide what to replay (spec.md §4.4).
func (q *CommandQueue) PendingAfter(userID uint64, confirmedSeq uint32) []CommandMessage {
	var out []CommandMessage
	for _, cmds := range q.pending {
		for _, c := range cmds {
			if c.ClientID.UserID == userID && c.ClientID.Sequence >= confirmedSeq {
				out = append(out, c)
			}
		}
	}
	return out
}

// DiscardUpTo drops every pending command whose tick is <= tick (used on
// snapshot application, spec.md §4.4 "pending local commands whose tick <=
// snapshot.tick are discarded").
func (q *CommandQueue) DiscardUpTo(tick uint32) {
	for t := range q.pending {
		if t <= tick {
			delete(q.pending, t)
		}
	}
}

// Len reports the total number of commands currently buffered across all
// scheduled ticks, for queue-depth instrumentation.
func (q *CommandQueue) Len() int {
	n := 0
	for _, cmds := range q.pending {
		n += len(cmds)
	}
	return n
}

// Clone returns a deep copy of the queue's pending state, used by the
// prediction engine when rebuilding predicted from committed.
func (q *CommandQueue) Clone() *CommandQueue {
	c := NewCommandQueue(q.schedulingDelay)
	for tick, cmds := range q.pending {
		c.pending[tick] = append([]CommandMessage(nil), cmds...)
	}
	for id := range q.seen {
		c.seen[id] = struct{}{}
	}
	for u, s := range q.localSeq {
		c.localSeq[u] = s
	}
	return c
}
