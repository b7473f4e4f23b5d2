package predicate

// And returns q AND other.
func (q Q) And(other Q) Q {
	return q.combine(other, AND)
}

// Or returns q OR other.
func (q Q) Or(other Q) Q {
	return q.combine(other, OR)
}

// Not returns a copy of q with its negation flag toggled, so Not applied
// twice yields an expression equal to the original.
func (q Q) Not() Q {
	out := q.clone()
	out.negated = !q.negated
	return out
}

// And folds the expressions with AND from left to right.
func And(qs ...Q) Q {
	return fold(AND, qs)
}

// Or folds the expressions with OR from left to right.
func Or(qs ...Q) Q {
	return fold(OR, qs)
}

// Not returns q negated.
func Not(q Q) Q {
	return q.Not()
}

func fold(conn Connector, qs []Q) Q {
	var out Q
	for _, q := range qs {
		out = out.combine(q, conn)
	}
	return out
}

// combine joins two expressions under conn. An empty side contributes
// nothing, so the other side is returned as a copy.
func (q Q) combine(other Q, conn Connector) Q {
	if other.IsEmpty() {
		return q.clone()
	}
	if q.IsEmpty() {
		return other.clone()
	}

	out := Q{connector: conn}
	out.add(q)
	out.add(other)
	return out
}

// add appends data to the node. A non-negated operand sharing the node's
// connector, or holding a single child, is flattened into the node.
func (q *Q) add(data Q) {
	for _, existing := range q.children {
		if childEqual(existing, data) {
			return
		}
	}
	if !data.negated && (data.connector == q.connector || len(data.children) == 1) {
		q.children = append(q.children, data.children...)
		return
	}
	q.children = append(q.children, data)
}

// clone copies the top-level children slice. Nested nodes are values with
// slices that are never written after construction, so sharing them is safe.
func (q Q) clone() Q {
	out := Q{connector: q.connector, negated: q.negated}
	if len(q.children) > 0 {
		out.children = make([]Child, len(q.children))
		copy(out.children, q.children)
	}
	return out
}
