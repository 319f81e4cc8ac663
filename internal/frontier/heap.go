package frontier

// entryHeap implements container/heap ordering for frontier entries:
// higher priority first, then shallower depth, then sitemap position
// (sitemap-listed URLs outrank discovered links, lower positions first),
// then discovery order.
type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a, b := h[i], h[j]

	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}

	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}

	if a.SitemapPos != b.SitemapPos {
		// Unlisted entries carry noSitemapPosition (-1) and lose to any
		// listed entry at the same depth.
		if a.SitemapPos == noSitemapPosition {
			return false
		}
		if b.SitemapPos == noSitemapPosition {
			return true
		}
		return a.SitemapPos < b.SitemapPos
	}

	return a.Seq < b.Seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	entry, ok := x.(*Entry)
	if !ok {
		return
	}

	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]

	return entry
}
