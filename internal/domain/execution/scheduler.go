package execution

// ExecuteNode is the single recursive, idempotent scheduling primitive.
// Calling it on any node in a run is always safe: a node that has already
// been processed this run returns immediately, a node waiting on an
// external resume is left untouched, and a node whose connections mark it
// dead is killed and the kill propagates forward — in every other case the
// node's driving predecessor is pulled in first (backward), its attributes
// are bound from its connections, its body executes, and its live
// successors are pulled forward in turn.
func ExecuteNode(rc *RunContext, node *NodeInstance) error {
	if node.IsBlocking() {
		return nil
	}
	if node.IsPending() {
		return nil
	}
	if !node.IsKilled() && shouldKill(node) {
		return killForward(rc, node)
	}
	if node.IsProcessed() || node.IsKilled() {
		return nil
	}

	if err := backwardPhase(rc, node, node.DrivingConnections()); err != nil {
		return err
	}
	if err := backwardPhase(rc, node, node.InConnections()); err != nil {
		return err
	}

	for _, c := range node.DrivingConnections() {
		if c.IsKiller() {
			continue
		}
		if err := ApplyFromDrivingConnection(rc.State, node, c); err != nil {
			return err
		}
	}
	for _, c := range node.AliveInConnections() {
		if err := ApplyFromIncomingConnection(rc.State, node, c); err != nil {
			return err
		}
	}

	if node.IsPending() {
		// binding may have put the node into a waiting state (e.g. a
		// human-interaction node whose incoming attributes just arrived).
		return nil
	}

	if err := stateExecute(rc, node); err != nil {
		return err
	}

	for _, c := range node.OutConnections() {
		c.Touch()
		if c.IsKiller() {
			continue
		}
		target, ok := rc.State.GetNodeByID(c.TargetNodeID)
		if !ok {
			continue
		}
		target.AddFoundBy(c.UUID)
		if shouldKill(target) {
			if err := killForward(rc, target); err != nil {
				return err
			}
			continue
		}
		if node.IsInLoop() {
			target.SetInLoop(true)
		}
		if err := ExecuteNode(rc, target); err != nil {
			return err
		}
	}
	return nil
}

// backwardPhase pulls in every source node reachable through conns that
// hasn't already been processed, marking each connection touched along the
// way. A connection already recorded in node's found_by (because the
// forward phase already drove a recursion through it) or currently a
// killer is skipped rather than re-descended.
func backwardPhase(rc *RunContext, node *NodeInstance, conns []*Connection) error {
	for _, c := range conns {
		c.Touch()
		if c.IsKiller() || node.WasFoundBy(c.UUID) {
			continue
		}
		src, ok := rc.State.GetNodeByID(c.SourceNodeID)
		if !ok {
			continue
		}
		if err := ExecuteNode(rc, src); err != nil {
			return err
		}
	}
	return nil
}

// shouldKill decides whether a node's connections mean it can never
// receive a live signal: every driving connection is a killer, or there is
// exactly one incoming connection and it's a killer, or the incoming
// connections group by target handle and at least one whole group is
// entirely killed.
func shouldKill(n *NodeInstance) bool {
	if driving := n.DrivingConnections(); len(driving) > 0 {
		allKiller := true
		for _, c := range driving {
			if !c.IsKiller() {
				allKiller = false
				break
			}
		}
		if allKiller {
			return true
		}
	}

	in := n.InConnections()
	if len(in) == 1 {
		return in[0].IsKiller()
	}
	if len(in) == 0 {
		return false
	}

	groups := make(map[string][]*Connection)
	for _, c := range in {
		groups[c.TargetHandle] = append(groups[c.TargetHandle], c)
	}
	for _, group := range groups {
		allKiller := true
		for _, c := range group {
			if !c.IsKiller() {
				allKiller = false
				break
			}
		}
		if allKiller {
			return true
		}
	}
	return false
}

// killForward marks a node killed, poisons every outgoing connection, and
// hands each successor to ExecuteNode, which kills it in turn when its own
// should-kill check now holds and otherwise runs it normally.
func killForward(rc *RunContext, n *NodeInstance) error {
	n.Kill()
	n.MarkProcessed()
	for _, c := range n.OutConnections() {
		c.MakeKiller()
		if target, ok := rc.State.GetNodeByID(c.TargetNodeID); ok {
			if err := ExecuteNode(rc, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// stateExecute runs a single node's own logic: secret/environment
// placeholder resolution, the body's Execute call (with any error captured
// rather than propagated), branch fan-out, and result/event recording.
func stateExecute(rc *RunContext, n *NodeInstance) error {
	n.MarkProcessed()
	order := rc.AppendNodesOrder(n.ID)

	hasListener := rc.Listeners != nil && rc.Events != nil && rc.Listeners.HasListener(rc.Context, rc.NodeSetupVersionID, "mock")
	if hasListener {
		rc.Events.SendFlowEvent(rc.Context, rc.FlowID, rc.RunID, n.ID, "start_node", order, "running")
	}

	if rc.Placeholders != nil {
		applyPlaceholders(rc, n)
	}

	if err := n.Body.Execute(rc); err != nil {
		n.SetException(err)
	}

	applyBranchFanOut(n)

	if rc.Recorder != nil {
		_ = rc.Recorder.StoreNodeResult(rc.Context, rc.FlowID, rc.RunID, n, order, rc.Stage, rc.SubStage, rc.SecretsByValue())
	}

	if hasListener {
		status := "success"
		if n.IsKilled() {
			status = "killed"
		} else if n.GetException() != nil {
			status = "error"
		}
		rc.Events.SendFlowEvent(rc.Context, rc.FlowID, rc.RunID, n.ID, "end_node", order, status)
	}
	return nil
}

// applyPlaceholders runs both substitution passes over every declared
// string/map/slice attribute of a node's body, mirroring the original's
// blanket per-attribute pass rather than requiring each node class to opt
// in individually.
func applyPlaceholders(rc *RunContext, n *NodeInstance) {
	for _, name := range AttributeNames(n.Body) {
		value, ok := GetAttribute(n.Body, name)
		if !ok {
			continue
		}
		switch value.(type) {
		case string, map[string]interface{}, []interface{}:
		default:
			continue
		}
		value = rc.Placeholders.ResolveSecretsAndEnv(rc, value)
		if rendered, err := rc.Placeholders.RenderTemplates(rc.State, n, value); err == nil {
			value = rendered
		}
		_ = SetAttribute(n.Body, name, value)
	}
}

// applyBranchFanOut implements the true_path/false_path convention: a
// falsy true_path or false_path kills the connections leaving via that
// handle; a truthy false_path means "error taken" and kills every outgoing
// connection except those leaving via false_path.
func applyBranchFanOut(n *NodeInstance) {
	falseVal, hasFalse := GetAttribute(n.Body, "false_path")
	if hasFalse && truthy(falseVal) {
		for _, c := range n.OutConnectionsExceptOnFalsePath() {
			c.MakeKiller()
		}
		return
	}

	if trueVal, hasTrue := GetAttribute(n.Body, "true_path"); hasTrue && !truthy(trueVal) {
		for _, c := range n.OutConnectionsOnTruePath() {
			c.MakeKiller()
		}
	}
	if hasFalse && !truthy(falseVal) {
		for _, c := range n.OutConnectionsOnFalsePath() {
			c.MakeKiller()
		}
	}
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// Snipe resurrects node itself plus every node discovered by a loop/jump
// traversal between it and the LoopEnd/ListLoopEnd node sniping back to it
// (loopBody excludes both endpoints, see FindNodesInLoop/FindNodesInListLoop),
// truncates the run's execution journal back to node's position, and
// re-executes it — this is how a Jump or ListLoopStart node restarts its
// loop body for another iteration.
func Snipe(rc *RunContext, node *NodeInstance, loopBody []*NodeInstance) error {
	rc.TruncateNodesOrderAfter(node.ID)
	node.Resurrect()
	for _, n := range loopBody {
		n.Resurrect()
	}
	return ExecuteNode(rc, node)
}
