// Package catalog loads named shape documents from CUE files.
//
// Every entry lives under the top-level "shape" struct:
//
//	shape: "salary-records": {
//		description: "salary rows for every tax year"
//		rule:        "salary-records"
//		fields: {
//			folder: {
//				datejoinedcomp: null
//				salary: [{datestarted: null}]
//			}
//			inputs: current_date: null
//		}
//	}
//
// Inside fields, null is a required leaf, a struct is a to-one relation,
// a one-element list of structs is a to-many relation and any other
// concrete value is a filter. Field order follows the CUE source, so SQL
// compiled from a catalog entry is stable.
//
// Set list: true for documents whose root is a list of rows.
package catalog
