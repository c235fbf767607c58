package cluster

import (
	"math"
	"sort"
)

// HDBSCAN is the default density backend. Unlike DBSCAN it needs no eps:
// it builds the full density hierarchy and extracts the flat clustering
// that maximizes stability.
//
// The pipeline follows the Campello/Moulavi/Sander construction:
//
//  1. core distance per point = distance to its MinClusterSize-th nearest
//     neighbor, the point itself counted;
//  2. mutual reachability distance mr(a,b) = max(core(a), core(b), d(a,b));
//  3. minimum spanning tree over the mutual reachability graph (Prim);
//  4. single-linkage dendrogram from the sorted MST edges;
//  5. condensed tree: splits where both sides hold at least MinClusterSize
//     points spawn child clusters, smaller spill-offs fall out as noise;
//  6. excess-of-mass: keep the set of clusters with the largest total
//     stability, never the root.
//
// Input sizes here are a city's pending requests per tick, so the O(n²)
// distance work is not worth an index structure.
type HDBSCAN struct {
	MinClusterSize int
}

// Labels assigns a dense cluster label to every row of features, Noise (-1)
// for points outside every selected cluster. Fewer than MinClusterSize
// points can never form a cluster and come back all Noise.
func (h HDBSCAN) Labels(features [][]float64) []int {
	n := len(features)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n < h.MinClusterSize || h.MinClusterSize < 2 {
		return labels
	}

	core := h.coreDistances(features)
	edges := mutualReachabilityMST(features, core)
	dendro := singleLinkage(edges, n)
	condensed := condense(dendro, n, h.MinClusterSize)
	selected := condensed.selectByStability()

	for _, row := range condensed.points {
		if target, ok := selected[condensed.selectedAncestor(row.cluster)]; ok {
			labels[row.point] = target
		}
	}
	return labels
}

// coreDistances returns, per point, the distance to its k-th nearest
// neighbor with the point itself counted as the closest.
func (h HDBSCAN) coreDistances(features [][]float64) []float64 {
	n := len(features)
	k := h.MinClusterSize - 1 // k-th nearest other point
	core := make([]float64, n)
	dists := make([]float64, n)
	for i := range features {
		for j := range features {
			dists[j] = euclidean(features[i], features[j])
		}
		sort.Float64s(dists)
		core[i] = dists[k] // dists[0] is the self distance 0
	}
	return core
}

// mstEdge is one edge of the spanning tree over mutual reachability space.
type mstEdge struct {
	a, b int
	w    float64
}

// mutualReachabilityMST runs Prim's algorithm over the implicit complete
// graph, never materializing the n×n matrix.
func mutualReachabilityMST(features [][]float64, core []float64) []mstEdge {
	n := len(features)
	inTree := make([]bool, n)
	bestW := make([]float64, n)
	bestFrom := make([]int, n)
	for i := range bestW {
		bestW[i] = math.Inf(1)
	}

	edges := make([]mstEdge, 0, n-1)
	current := 0
	inTree[0] = true

	for len(edges) < n-1 {
		next := -1
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			w := math.Max(euclidean(features[current], features[j]),
				math.Max(core[current], core[j]))
			if w < bestW[j] {
				bestW[j], bestFrom[j] = w, current
			}
			if next == -1 || bestW[j] < bestW[next] {
				next = j
			}
		}
		edges = append(edges, mstEdge{a: bestFrom[next], b: next, w: bestW[next]})
		inTree[next] = true
		current = next
	}

	// ascending weight is the merge order of the hierarchy; index tie-break
	// keeps the dendrogram deterministic for identical inputs
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].w != edges[j].w {
			return edges[i].w < edges[j].w
		}
		if edges[i].a != edges[j].a {
			return edges[i].a < edges[j].a
		}
		return edges[i].b < edges[j].b
	})
	return edges
}

// dendroNode is one merge of the single-linkage hierarchy. Node ids 0..n-1
// are the input points; internal nodes get ids n..2n-2, the last one being
// the root.
type dendroNode struct {
	left, right int
	dist        float64
	size        int
}

// singleLinkage replays the sorted MST edges through a union-find,
// recording one merge node per edge.
func singleLinkage(edges []mstEdge, n int) []dendroNode {
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	compNode := make([]int, 2*n-1) // union-find root -> dendrogram node id
	for i := 0; i < n; i++ {
		compNode[i] = i
	}

	nodes := make([]dendroNode, 0, n-1)
	for _, e := range edges {
		ra, rb := find(e.a), find(e.b)
		na, nb := compNode[ra], compNode[rb]

		id := n + len(nodes)
		nodes = append(nodes, dendroNode{
			left:  na,
			right: nb,
			dist:  e.w,
			size:  nodeSize(nodes, na, n) + nodeSize(nodes, nb, n),
		})

		parent[ra] = rb
		compNode[rb] = id
	}
	return nodes
}

func nodeSize(nodes []dendroNode, id, n int) int {
	if id < n {
		return 1
	}
	return nodes[id-n].size
}

// condensedTree is the pruned hierarchy: clusters plus, per input point,
// the cluster it fell out of and the density at which it did.
type condensedTree struct {
	clusters []condCluster
	points   []pointRow
	selected map[int]bool // filled by selectByStability
}

type condCluster struct {
	parent   int // Noise for the root
	birth    float64
	children []int // child cluster ids
}

type pointRow struct {
	cluster int
	point   int
	lambda  float64
}

// condFrame is one pending (dendrogram node, condensed cluster) pair of
// the condense walk.
type condFrame struct {
	node    int
	cluster int
}

// condense walks the dendrogram top-down. A split where both sides hold at
// least mcs points creates two child clusters; a smaller side sheds its
// points out of the current cluster at the split density.
func condense(nodes []dendroNode, n, mcs int) *condensedTree {
	tree := &condensedTree{}
	root := tree.newCluster(Noise, 0)
	stack := []condFrame{{node: n + len(nodes) - 1, cluster: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := nodes[f.node-n]
		lambda := lambdaOf(node.dist)
		sl := nodeSize(nodes, node.left, n)
		sr := nodeSize(nodes, node.right, n)

		switch {
		case sl >= mcs && sr >= mcs:
			// true split: both sides live on as new clusters
			for _, side := range []int{node.left, node.right} {
				child := tree.newCluster(f.cluster, lambda)
				tree.clusters[f.cluster].children = append(tree.clusters[f.cluster].children, child)
				stack = append(stack, condFrame{node: side, cluster: child})
			}
		case sl >= mcs:
			tree.shed(nodes, node.right, n, f.cluster, lambda)
			stack = append(stack, condFrame{node: node.left, cluster: f.cluster})
		case sr >= mcs:
			tree.shed(nodes, node.left, n, f.cluster, lambda)
			stack = append(stack, condFrame{node: node.right, cluster: f.cluster})
		default:
			// cluster dissolves: everything falls out here
			tree.shed(nodes, node.left, n, f.cluster, lambda)
			tree.shed(nodes, node.right, n, f.cluster, lambda)
		}
	}
	return tree
}

func (tree *condensedTree) newCluster(parent int, birth float64) int {
	tree.clusters = append(tree.clusters, condCluster{parent: parent, birth: birth})
	return len(tree.clusters) - 1
}

// shed records every leaf under id as falling out of cluster at lambda.
func (tree *condensedTree) shed(nodes []dendroNode, id, n, cluster int, lambda float64) {
	walk := []int{id}
	for len(walk) > 0 {
		cur := walk[len(walk)-1]
		walk = walk[:len(walk)-1]
		if cur < n {
			tree.points = append(tree.points, pointRow{cluster: cluster, point: cur, lambda: lambda})
			continue
		}
		walk = append(walk, nodes[cur-n].left, nodes[cur-n].right)
	}
}

// selectByStability runs the excess-of-mass extraction: a cluster is kept
// when its own stability beats the sum of its children's, the root never
// qualifies. Returns selected cluster id -> dense output label.
func (tree *condensedTree) selectByStability() map[int]int {
	stability := make([]float64, len(tree.clusters))
	for _, row := range tree.points {
		stability[row.cluster] += row.lambda - tree.clusters[row.cluster].birth
	}
	// a child cluster's whole mass also counts toward the parent up to the
	// split density
	for id, c := range tree.clusters {
		if c.parent != Noise {
			stability[c.parent] += float64(tree.subtreeLeafCount(id)) * (c.birth - tree.clusters[c.parent].birth)
		}
	}

	selected := make(map[int]bool, len(tree.clusters))
	best := make([]float64, len(tree.clusters))

	// children always carry higher ids than their parent, so a reverse
	// sweep is a bottom-up traversal
	for id := len(tree.clusters) - 1; id >= 0; id-- {
		c := tree.clusters[id]
		if len(c.children) == 0 {
			best[id] = stability[id]
			selected[id] = id != 0 // leaf cluster wins by default, root never
			continue
		}
		childSum := 0.0
		for _, ch := range c.children {
			childSum += best[ch]
		}
		if stability[id] >= childSum && id != 0 {
			selected[id] = true
			tree.deselectDescendants(id, selected)
			best[id] = stability[id]
		} else {
			best[id] = childSum
		}
	}

	tree.selected = selected

	// dense output labels in cluster-id order keeps labels stable per input
	labelOf := make(map[int]int)
	next := 0
	for id := range tree.clusters {
		if selected[id] {
			labelOf[id] = next
			next++
		}
	}
	return labelOf
}

func (tree *condensedTree) deselectDescendants(id int, selected map[int]bool) {
	for _, ch := range tree.clusters[id].children {
		selected[ch] = false
		tree.deselectDescendants(ch, selected)
	}
}

// selectedAncestor walks up from id to the nearest selected cluster,
// id itself included. Returns Noise when the chain has none.
func (tree *condensedTree) selectedAncestor(id int) int {
	for cur := id; cur != Noise; cur = tree.clusters[cur].parent {
		if tree.selected[cur] {
			return cur
		}
	}
	return Noise
}

func (tree *condensedTree) subtreeLeafCount(id int) int {
	count := 0
	for _, row := range tree.points {
		if tree.inSubtree(row.cluster, id) {
			count++
		}
	}
	return count
}

func (tree *condensedTree) inSubtree(cluster, root int) bool {
	for cur := cluster; cur != Noise; cur = tree.clusters[cur].parent {
		if cur == root {
			return true
		}
	}
	return false
}

// lambdaOf converts a merge distance into density. Coincident points would
// give an infinite density; clamping keeps the stability sums finite.
func lambdaOf(dist float64) float64 {
	if dist < 1e-12 {
		return 1e12
	}
	return 1 / dist
}
