// Package dsp holds the wave digital filter elements used by the clipping
// stage. Elements are concrete types wired once at construction; processing
// allocates nothing.
package dsp

import "math"

// Port is a one-port wave digital element seen from its parent adaptor.
type Port interface {
	// Reflected computes and returns the wave leaving the element.
	Reflected() float64
	// Incident delivers the wave entering the element.
	Incident(a float64)
	// Resistance is the port resistance in ohms.
	Resistance() float64
}

// Voltage returns the port voltage (a+b)/2 of a wave pair.
func Voltage(a, b float64) float64 {
	return 0.5 * (a + b)
}

// ResistiveVoltageSource is an ideal voltage source in series with a resistor.
type ResistiveVoltageSource struct {
	r  float64
	vs float64
	a  float64
	b  float64
}

// NewResistiveVoltageSource creates a source with series resistance r ohms.
func NewResistiveVoltageSource(r float64) *ResistiveVoltageSource {
	return &ResistiveVoltageSource{r: r}
}

// SetVoltage sets the source voltage for the next reflected wave.
func (s *ResistiveVoltageSource) SetVoltage(v float64) { s.vs = v }

// Reflected returns the source voltage; the matched resistor absorbs the incident wave.
func (s *ResistiveVoltageSource) Reflected() float64 {
	s.b = s.vs
	return s.b
}

// Incident stores a.
func (s *ResistiveVoltageSource) Incident(a float64) { s.a = a }

// Resistance returns the series resistance.
func (s *ResistiveVoltageSource) Resistance() float64 { return s.r }

// Voltage returns the voltage across the port.
func (s *ResistiveVoltageSource) Voltage() float64 { return Voltage(s.a, s.b) }

// Capacitor is a bilinear-discretized capacitor. Its port resistance
// 1/(2*C*fs) is fixed for the lifetime of the element.
type Capacitor struct {
	c  float64
	fs float64
	r  float64
	a  float64
	b  float64
	z  float64
}

// NewCapacitor creates a capacitor of c farads running at fs Hz.
func NewCapacitor(c, fs float64) *Capacitor {
	return &Capacitor{c: c, fs: fs, r: 1 / (2 * c * fs)}
}

// Reflected returns the wave stored one sample ago.
func (c *Capacitor) Reflected() float64 {
	c.b = c.z
	return c.b
}

// Incident stores a for the next sample.
func (c *Capacitor) Incident(a float64) {
	c.a = a
	c.z = a
}

// Resistance returns 1/(2*C*fs).
func (c *Capacitor) Resistance() float64 { return c.r }

// Voltage returns the voltage across the capacitor.
func (c *Capacitor) Voltage() float64 { return Voltage(c.a, c.b) }

// Reset clears the stored charge.
func (c *Capacitor) Reset() {
	c.a, c.b, c.z = 0, 0, 0
}

// Parallel is a three-port parallel adaptor, adapted towards its parent.
type Parallel struct {
	p1, p2 Port
	r      float64
	gamma1 float64
	gamma2 float64
	b1, b2 float64
	a      float64
	b      float64
}

// NewParallel connects p1 and p2 in parallel.
func NewParallel(p1, p2 Port) *Parallel {
	g1 := 1 / p1.Resistance()
	g2 := 1 / p2.Resistance()
	g := g1 + g2
	return &Parallel{
		p1:     p1,
		p2:     p2,
		r:      1 / g,
		gamma1: g1 / g,
		gamma2: g2 / g,
	}
}

// Reflected pulls both children and combines their waves.
func (p *Parallel) Reflected() float64 {
	p.b1 = p.p1.Reflected()
	p.b2 = p.p2.Reflected()
	p.b = p.gamma1*p.b1 + p.gamma2*p.b2
	return p.b
}

// Incident scatters a into both children.
func (p *Parallel) Incident(a float64) {
	p.a = a
	diff := p.b2 - p.b1
	p.p1.Incident(a + diff*p.gamma2)
	p.p2.Incident(a - diff*p.gamma1)
}

// Resistance is the parallel combination of the children.
func (p *Parallel) Resistance() float64 { return p.r }

// Voltage returns the shared voltage across both children.
func (p *Parallel) Voltage() float64 { return Voltage(p.a, p.b) }

// DiodePair is an antiparallel pair of identical diodes terminating a tree.
// The reflected wave is solved explicitly with the Wright omega function.
type DiodePair struct {
	r   float64
	is  float64
	vt  float64
	a   float64
	b   float64
	rIs float64
	// log(R*Is/Vt) + R*Is/Vt, constant for a fixed port resistance.
	k       float64
	invVt   float64
	twoRIs  float64
	twoVt   float64
	noSolve bool
}

// NewDiodePair creates a diode pair with saturation current is (A) and
// thermal voltage vt (V), attached to a port of resistance r.
func NewDiodePair(r, is, vt float64) *DiodePair {
	d := &DiodePair{r: r, is: is, vt: vt}
	d.rIs = r * is
	d.invVt = 1 / vt
	d.k = math.Log(d.rIs*d.invVt) + d.rIs*d.invVt
	d.twoRIs = 2 * d.rIs
	d.twoVt = 2 * vt
	d.noSolve = r <= 0 || is <= 0 || vt <= 0
	return d
}

// Incident delivers a and solves for the reflected wave.
func (d *DiodePair) Incident(a float64) {
	d.a = a
	if d.noSolve {
		d.b = -a
		return
	}
	lambda := sign(a)
	if lambda == 0 {
		d.b = a
		return
	}
	w := WrightOmega4(d.k + lambda*a*d.invVt)
	d.b = a + lambda*(d.twoRIs-d.twoVt*w)
}

// Reflected returns the wave computed by the last Incident.
func (d *DiodePair) Reflected() float64 { return d.b }

// Voltage returns the voltage across the diodes.
func (d *DiodePair) Voltage() float64 { return Voltage(d.a, d.b) }

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
