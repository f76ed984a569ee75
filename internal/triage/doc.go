// Package triage is the business boundary of the intake kiosk. It defines the
// domain model (patients, triage records, priority tiers), the Store
// persistence contract, the keyword Classifier and the Service that runs a
// kiosk admission end to end.
package triage
