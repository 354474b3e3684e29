// Package drive implements a stereo tone-shaping distortion: a tilt shelf,
// drive gain and bias, an oversampled wave digital diode clipper and a DC
// blocker per channel. Coefficients are recomputed every ControlDivision
// frames from the parameters and modulation voltages.
package drive
