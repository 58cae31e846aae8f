package analyzer

import (
	"time"
)

// ReachabilityResult contains the results of reachability analysis
type ReachabilityResult struct {
	ReachableBlocks   map[NodeID]*Node
	UnreachableBlocks map[NodeID]*Node
	TotalBlocks       int
	ReachableCount    int
	UnreachableCount  int
	AnalysisTime      time.Duration
}

// ReachabilityAnalyzer performs reachability analysis on CFGs
type ReachabilityAnalyzer struct {
	graph *Graph
	avoid NodeID
}

func NewReachabilityAnalyzer(g *Graph) *ReachabilityAnalyzer {
	return &ReachabilityAnalyzer{graph: g, avoid: NoNode}
}

// Avoiding makes traversal stop at the given node without visiting it
func (ra *ReachabilityAnalyzer) Avoiding(id NodeID) *ReachabilityAnalyzer {
	ra.avoid = id
	return ra
}

// AnalyzeReachability computes the nodes reachable from the entry
func (ra *ReachabilityAnalyzer) AnalyzeReachability() *ReachabilityResult {
	if ra.graph == nil {
		return ra.AnalyzeReachabilityFrom(NoNode)
	}
	return ra.AnalyzeReachabilityFrom(ra.graph.Entry)
}

// AnalyzeReachabilityFrom computes the nodes reachable from start
func (ra *ReachabilityAnalyzer) AnalyzeReachabilityFrom(start NodeID) *ReachabilityResult {
	startTime := time.Now()

	result := &ReachabilityResult{
		ReachableBlocks:   make(map[NodeID]*Node),
		UnreachableBlocks: make(map[NodeID]*Node),
	}

	if ra.graph == nil {
		result.AnalysisTime = time.Since(startTime)
		return result
	}

	result.TotalBlocks = ra.graph.Size()

	if ra.graph.Node(start) != nil {
		ra.traverseFrom(start, result.ReachableBlocks)
	}

	for _, n := range ra.graph.Nodes {
		if n == nil {
			continue
		}
		if _, isReachable := result.ReachableBlocks[n.ID]; !isReachable {
			result.UnreachableBlocks[n.ID] = n
		}
	}

	result.ReachableCount = len(result.ReachableBlocks)
	result.UnreachableCount = len(result.UnreachableBlocks)
	result.AnalysisTime = time.Since(startTime)

	return result
}

func (ra *ReachabilityAnalyzer) traverseFrom(start NodeID, reachable map[NodeID]*Node) {
	stack := []NodeID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := reachable[id]; seen || id == ra.avoid {
			continue
		}
		reachable[id] = ra.graph.Nodes[id]

		succs := ra.graph.AllSuccs(id)
		for i := len(succs) - 1; i >= 0; i-- {
			stack = append(stack, succs[i])
		}
	}
}

// GetUnreachableBlocksWithStatements drops the empty unreachable blocks
func (result *ReachabilityResult) GetUnreachableBlocksWithStatements() map[NodeID]*Node {
	blocksWithStatements := make(map[NodeID]*Node)
	for id, block := range result.UnreachableBlocks {
		if !block.IsEmpty() {
			blocksWithStatements[id] = block
		}
	}
	return blocksWithStatements
}

// GetReachabilityRatio is the share of blocks reached, 1 for an empty graph
func (result *ReachabilityResult) GetReachabilityRatio() float64 {
	if result.TotalBlocks == 0 {
		return 1.0
	}
	return float64(result.ReachableCount) / float64(result.TotalBlocks)
}

// HasUnreachableCode reports whether an unreachable block holds statements
func (result *ReachabilityResult) HasUnreachableCode() bool {
	for _, block := range result.UnreachableBlocks {
		if !block.IsEmpty() {
			return true
		}
	}
	return false
}

// IsReachable reports whether id was reached
func (result *ReachabilityResult) IsReachable(id NodeID) bool {
	_, ok := result.ReachableBlocks[id]
	return ok
}
