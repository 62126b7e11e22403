package waternet

import "sort"

// EdgeUtilization reports how much of a pipe's capacity a flow uses.
type EdgeUtilization struct {
	Edge        EdgeKey `json:"edge"`
	Flow        float64 `json:"flow"`
	Capacity    float64 `json:"capacity"`
	Utilization float64 `json:"utilization"`
	Saturated   bool    `json:"saturated"`
}

// NodeBalance reports inflow and outflow through a node.
type NodeBalance struct {
	NodeID  string  `json:"node_id"`
	Inflow  float64 `json:"inflow"`
	Outflow float64 `json:"outflow"`
}

// Statistics summarises a flow result over its network for diagnostics
// and reporting.
type Statistics struct {
	FlowValue       float64           `json:"flow_value"`
	EdgeCount       int               `json:"edge_count"`
	ActiveEdges     int               `json:"active_edges"`
	SaturatedEdges  int               `json:"saturated_edges"`
	MeanUtilization float64           `json:"mean_utilization"`
	Utilization     []EdgeUtilization `json:"utilization"`
	Balances        []NodeBalance     `json:"balances"`
	Bottlenecks     []EdgeKey         `json:"bottlenecks"`
}

// ComputeStatistics derives per-edge utilization and per-node balances for
// a flow result. Edges appear in network insertion order, nodes in their
// declaration order. Bottlenecks are the saturated edges sorted by capacity
// descending, the widest saturated pipes first.
func ComputeStatistics(network *Network, result *FlowResult) *Statistics {
	stats := &Statistics{
		FlowValue:   result.Value,
		EdgeCount:   network.EdgeCount(),
		Utilization: make([]EdgeUtilization, 0, network.EdgeCount()),
	}

	var utilSum float64
	var utilCount int
	inflow := make(map[string]float64, network.NodeCount())
	outflow := make(map[string]float64, network.NodeCount())

	for _, edge := range network.Edges() {
		flow := result.Flow(edge.Key())
		u := EdgeUtilization{
			Edge:     edge.Key(),
			Flow:     flow,
			Capacity: edge.Capacity,
		}
		if edge.Capacity > Epsilon {
			u.Utilization = flow / edge.Capacity
			u.Saturated = FloatEquals(flow, edge.Capacity)
			utilSum += u.Utilization
			utilCount++
		}
		if flow > Epsilon {
			stats.ActiveEdges++
		}
		if u.Saturated {
			stats.SaturatedEdges++
			stats.Bottlenecks = append(stats.Bottlenecks, edge.Key())
		}
		stats.Utilization = append(stats.Utilization, u)
		outflow[edge.From] += flow
		inflow[edge.To] += flow
	}

	if utilCount > 0 {
		stats.MeanUtilization = utilSum / float64(utilCount)
	}

	sort.SliceStable(stats.Bottlenecks, func(i, j int) bool {
		ei, _ := network.Edge(stats.Bottlenecks[i])
		ej, _ := network.Edge(stats.Bottlenecks[j])
		return ei.Capacity > ej.Capacity
	})

	stats.Balances = make([]NodeBalance, 0, network.NodeCount())
	for _, node := range network.Nodes() {
		stats.Balances = append(stats.Balances, NodeBalance{
			NodeID:  node.ID,
			Inflow:  inflow[node.ID],
			Outflow: outflow[node.ID],
		})
	}

	return stats
}
