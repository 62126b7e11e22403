package graph

// ArcStep идентифицирует один шаг пути: дуга номер Arc в списке узла Node.
type ArcStep struct {
	Node int
	Arc  int
}

// ReconstructPath восстанавливает путь source -> sink из результата BFS.
// Возвращает nil, если сток не был достигнут.
func ReconstructPath(res *BFSResult, source, sink int) []ArcStep {
	if !res.Found {
		return nil
	}

	var steps []ArcStep
	for v := sink; v != source; v = res.ParentNode[v] {
		steps = append(steps, ArcStep{Node: res.ParentNode[v], Arc: res.ParentArc[v]})
	}

	// Разворачиваем: шаги собраны от стока к истоку
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}

// FindMinCapacityOnPath находит минимальную пропускную способность на пути
func FindMinCapacityOnPath(r *Residual, path []ArcStep) float64 {
	if len(path) == 0 {
		return 0
	}

	minCapacity := Infinity
	for _, step := range path {
		arc := r.Arc(step.Node, step.Arc)
		if arc.Capacity < minCapacity {
			minCapacity = arc.Capacity
		}
	}

	if minCapacity == Infinity {
		return 0
	}
	return minCapacity
}

// AugmentPath увеличивает поток вдоль пути
func AugmentPath(r *Residual, path []ArcStep, flow float64) {
	for _, step := range path {
		r.Push(step.Node, step.Arc, flow)
	}
}
