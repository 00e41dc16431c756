package feed

// SessionGap is the largest gap, in milliseconds, between two adjacent
// visits of the same session.
const SessionGap int64 = 600000

// Session is a run of visits whose adjacent timestamps are at most
// SessionGap apart, in input order.
type Session []Visit

// Segment splits visits into sessions. Every visit must have a timestamp
// under ts; BucketByDay guarantees that for the lists it passes in.
func Segment(visits []Visit, ts TimestampFunc) []Session {
	return segment(visits, ts, SessionGap)
}

func segment(visits []Visit, ts TimestampFunc, gap int64) []Session {
	if len(visits) == 0 {
		return nil
	}

	sessions := []Session{{visits[0]}}
	prev, _ := ts(visits[0])
	for _, v := range visits[1:] {
		cur, _ := ts(v)
		if abs(cur-prev) > gap {
			sessions = append(sessions, Session{})
		}
		last := len(sessions) - 1
		sessions[last] = append(sessions[last], v)
		prev = cur
	}
	return sessions
}

func abs(d int64) int64 {
	if d < 0 {
		return -d
	}
	return d
}
