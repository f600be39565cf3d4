package execution

import "strings"

// findNodesUntil walks forward from origin along outgoing connections,
// depth-first, collecting every node it passes through until it reaches one
// matching terminate. origin itself is never collected (it's where the walk
// starts, not something it discovers), and neither is the terminator: it is
// returned separately so callers can bind against it directly instead of
// having to search for it inside the collected body. Nodes matching skip are
// excluded entirely — not collected, not descended into. postProcess, if
// non-nil, runs on every collected node before its children are explored,
// and is how loop discovery flags interior nodes as "in_loop".
func findNodesUntil(state *ExecutionState, origin *NodeInstance, terminate, skip func(*NodeInstance) bool, postProcess func(*NodeInstance)) ([]*NodeInstance, *NodeInstance) {
	var collected []*NodeInstance
	var terminator *NodeInstance
	seen := make(map[string]bool)

	var walk func(n *NodeInstance)
	walk = func(n *NodeInstance) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true

		for _, c := range n.OutConnections() {
			target, ok := state.GetNodeByID(c.TargetNodeID)
			if !ok {
				continue
			}
			if terminate(target) {
				terminator = target
				continue
			}
			if skip != nil && skip(target) {
				continue
			}
			if postProcess != nil {
				postProcess(target)
			}
			collected = append(collected, target)
			walk(target)
		}
	}
	walk(origin)
	return collected, terminator
}

func classNameIs(body NodeBody, name string) bool {
	return body.ClassName() == name
}

func classNameHasPrefix(body NodeBody, prefix string) bool {
	return strings.HasPrefix(body.ClassName(), prefix)
}

// FindNodesForJump walks forward from origin, collecting every node up to
// (but not including) the first node of class "Jump", which is returned as
// the terminator.
func FindNodesForJump(state *ExecutionState, origin *NodeInstance) ([]*NodeInstance, *NodeInstance) {
	terminate := func(n *NodeInstance) bool { return classNameIs(n.Body, "Jump") }
	return findNodesUntil(state, origin, terminate, nil, nil)
}

// FindNodesInLoop walks forward from origin, collecting every interior node
// up to (but not including) the LoopEnd* node that terminates the walk,
// refusing to descend past any "ListLoop*" node and marking every collected
// node as in_loop along the way. The LoopEnd node is returned separately as
// the terminator.
func FindNodesInLoop(state *ExecutionState, origin *NodeInstance) ([]*NodeInstance, *NodeInstance) {
	terminate := func(n *NodeInstance) bool { return classNameHasPrefix(n.Body, "LoopEnd") }
	skip := func(n *NodeInstance) bool { return classNameHasPrefix(n.Body, "ListLoop") }
	postProcess := func(n *NodeInstance) { n.SetInLoop(true) }
	return findNodesUntil(state, origin, terminate, skip, postProcess)
}

// FindNodesInListLoop is FindNodesInLoop's counterpart for a nested "list
// loop": walked from its ListLoopStart marker, terminating at the matching
// ListLoopEnd (returned as the terminator) rather than the enclosing loop's
// plain LoopEnd. Run as a second pass after FindNodesInLoop, since the outer
// scan's skip predicate refuses to descend into ListLoopStart in the first
// place.
func FindNodesInListLoop(state *ExecutionState, origin *NodeInstance) ([]*NodeInstance, *NodeInstance) {
	terminate := func(n *NodeInstance) bool { return classNameIs(n.Body, "ListLoopEnd") }
	postProcess := func(n *NodeInstance) { n.SetInLoop(true) }
	return findNodesUntil(state, origin, terminate, nil, postProcess)
}
