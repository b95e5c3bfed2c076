// Package kitchen defines the kitchen graph data model: categories, inventory
// nodes and the edges between them, plus the canonical JSON wire format.
//
// # Core Types
//
//   - [Category]: a restaurant-owned grouping referenced by nodes
//   - [Node]: a dish, modification option or category placed on the board
//   - [Edge]: a directed link between two nodes of the same restaurant
//   - [Graph]: the read-mostly snapshot returned by the Graph Store
//
// # Positions
//
// A node carries two views of the same spatial fact:
//
//	x, y                    domain coordinates, unbounded, arbitrary unit
//	x_position, y_position  fractional coordinates in [0,1]
//
// Either view may be the source of truth depending on how the node was
// created, and any combination may be present. Resolution into a rendered
// position happens once, in pkg/layout.
//
// # Serialization
//
//	g, _ := kitchen.ReadGraphFile("menu.json")   // File → Graph
//	kitchen.WriteGraphFile(g, "backup.json")     // Graph → File
//	data, _ := kitchen.MarshalGraph(g)           // Graph → []byte
//
// # Concurrency
//
// Graph values are plain data and are not safe for concurrent mutation.
// Use [Graph.Clone] to hand a snapshot to another goroutine.
package kitchen
