// Package workflow holds the member review state model: the upload and
// community status enums with their display tables, the document
// categories, unlock targets, and the pure transition rules that services
// apply inside their transactions.
package workflow
