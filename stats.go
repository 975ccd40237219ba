package flowchart

// Statistics is a summary of a document.
type Statistics struct {
	TotalNodes            int           `json:"total_nodes"`
	NodesByType           map[Shape]int `json:"nodes_by_type"`
	TotalEdges            int           `json:"total_edges"`
	EstimatedTotalMinutes float64       `json:"estimated_total_minutes"`
	CompletionRate        float64       `json:"completion_rate"`
	CriticalPath          []string      `json:"critical_path"`
}

// ComputeStatistics counts nodes and edges, sums estimates, and finds the
// critical path.
func ComputeStatistics(doc Document) Statistics {
	st := Statistics{
		TotalNodes:   len(doc.Nodes),
		NodesByType:  make(map[Shape]int),
		TotalEdges:   len(doc.Edges),
		CriticalPath: CriticalPath(doc),
	}
	completed := 0
	for _, n := range doc.Nodes {
		st.NodesByType[n.Type]++
		st.EstimatedTotalMinutes += n.Data.Business.estimated()
		if b := n.Data.Business; b != nil && b.Status == StatusCompleted {
			completed++
		}
	}
	if len(doc.Nodes) > 0 {
		st.CompletionRate = float64(completed) / float64(len(doc.Nodes)) * 100
	}
	return st
}

// CriticalPath returns the node ids of the path with the largest summed
// estimated time, starting at a node without incoming edges. Edges that
// close a cycle are ignored. Ties keep the earliest node in document order.
func CriticalPath(doc Document) []string {
	if len(doc.Nodes) == 0 {
		return []string{}
	}

	weight := make(map[string]float64, len(doc.Nodes))
	for _, n := range doc.Nodes {
		weight[n.ID] = n.Data.Business.estimated()
	}
	adj := make(map[string][]string)
	hasIn := make(map[string]bool)
	for _, e := range doc.Edges {
		if _, ok := weight[e.Source]; !ok {
			continue
		}
		if _, ok := weight[e.Target]; !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		if e.Source != e.Target {
			hasIn[e.Target] = true
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(doc.Nodes))
	best := make(map[string]float64, len(doc.Nodes))
	next := make(map[string]string, len(doc.Nodes))

	var dfs func(id string)
	dfs = func(id string) {
		state[id] = visiting
		best[id] = weight[id]
		for _, to := range adj[id] {
			switch state[to] {
			case visiting:
				continue
			case unvisited:
				dfs(to)
			}
			if total := weight[id] + best[to]; total > best[id] {
				best[id] = total
				next[id] = to
			}
		}
		state[id] = visited
	}

	start := ""
	for _, n := range doc.Nodes {
		if hasIn[n.ID] {
			continue
		}
		if state[n.ID] == unvisited {
			dfs(n.ID)
		}
		if start == "" || best[n.ID] > best[start] {
			start = n.ID
		}
	}
	if start == "" {
		return []string{}
	}

	path := []string{start}
	seen := map[string]bool{start: true}
	for id := next[start]; id != "" && !seen[id]; id = next[id] {
		path = append(path, id)
		seen[id] = true
	}
	return path
}
