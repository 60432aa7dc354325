// Package queryir defines the abstract query tree that absql compiles.
//
// An abstract query is database-agnostic: it names a collection, the
// fields the caller wants (with user-facing aliases), and modifiers
// (filter, sort, limit, offset). Relations are already resolved into
// positional key lists by whoever built the tree, so nothing here needs
// schema metadata.
//
// ARCHITECTURE:
//
//	[REST / GraphQL / YAML / CUE] → [queryir.Query] → compiler → [sqlast.Result]
//
// The tree is immutable once built. The compiler never rewrites it in
// place; nested-many sub-queries capture pieces of it by value.
//
// SEALED INTERFACES:
//
// Field, Target, Filter, and Condition are sealed with marker methods.
// Every compiler function switches over them exhaustively, and the
// default branch reports an unknown node. Nodes are plain values: the
// compiler does not accept pointers to nodes.
//
//	switch f := field.(type) {
//	case Primitive:
//	case Fn:
//	case NestedOne:
//	case NestedMany:
//	default:
//	    // unknown node, reported as a shape error
//	}
//
// VALIDATION:
//
// Validate walks a whole tree and collects every shape problem it finds
// (mismatched key lists, bad operators, negative limits, duplicate
// aliases). The compiler runs it first and refuses to emit anything for
// a tree with problems.
//
// DECODING:
//
// Decode reads the JSON/YAML wire form, in which every node carries a
// "type" discriminator:
//
//	collection: orders
//	fields:
//	  - {type: primitive, field: id, alias: id}
//	  - type: nested-single-many
//	    alias: lineItems
//	    fields: [{type: primitive, field: sku, alias: sku}]
//	    nesting:
//	      local: {fields: [id]}
//	      foreign: {collection: items, fields: [order_id]}
//	modifiers:
//	  filter:
//	    type: condition
//	    condition:
//	      type: condition-number
//	      operation: gt
//	      target: {type: primitive, field: total}
//	      compareTo: 100
//	  limit: {type: limit, value: 10}
package queryir
