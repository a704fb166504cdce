package tracker

// findCycle checks whether giving taskID the dependency set newDeps would
// close a cycle, and returns one witness path (taskID ... taskID) if so.
//
// Only cycles through taskID can be introduced: every other edge already
// passed this check when it was committed. The walk follows stored dependency
// sets, substituting newDeps for taskID's own.
func (tr *Tracker) findCycle(taskID string, newDeps []string) []string {
	depsOf := func(id string) []string {
		if id == taskID {
			return newDeps
		}
		t, err := tr.store.GetTask(id)
		if err != nil {
			return nil
		}
		return t.Dependencies
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	var path []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		path = append(path, id)
		for _, dep := range depsOf(id) {
			switch color[dep] {
			case white:
				if dfs(dep) {
					return true
				}
			case gray:
				if dep == taskID {
					path = append(path, dep)
					return true
				}
			}
		}
		color[id] = black
		path = path[:len(path)-1]
		return false
	}

	if dfs(taskID) {
		return path
	}
	return nil
}
