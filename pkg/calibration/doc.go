// Package calibration predicts the output volume and duration of a new
// deployment run from samples recorded during historical runs.
//
// Samples are discrete key=value files, one per run, named so multiple
// samples for the same (provider, operation) pair but different node counts
// coexist without collision. An affine model lines(nodes) = base +
// perNode*nodes is fitted from the available samples and evaluated at the
// requested node count; a fixed default model covers the cold-start case.
package calibration
