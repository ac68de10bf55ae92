// Package landing holds the landings ingestion pipeline: parsing uploaded
// CSV text, validating rows against reference data, and consolidating valid
// rows into the exporter's draft document.
//
// # Flow
//
//  1. [ParseLandingRows] turns raw text into [UploadedLanding] rows. Column
//     layout is inferred per row from the cell count.
//  2. [Validator.Validate] sends rows with the user's favourite products to a
//     [ReferenceValidator] and gets them back annotated with errors and, for
//     valid rows, product and vessel data.
//  3. [Consolidator.SaveLandingRows] re-validates, then appends each valid
//     row's [LandingStatus] to the [ExportPayload] item whose [Product] has the
//     same identity, minting new items as needed.
//
// Limits are passed into every call as a [Limits] value.
//
// Fatal failures are returned as *[Error] with a [Kind]; per-row validation
// problems are carried on each row's Errors list instead.
package landing
