package nn

import (
	"fmt"
	"strings"
)

// DescribeLimit is the largest neuron count Describe will expand
const DescribeLimit = 30

// TooLargeToDescribe is returned by Describe above DescribeLimit neurons
const TooLargeToDescribe = "<network too large to describe>"

// Describe renders the closed-form expression each output computes, in terms
// of inputs x0..xN. Outputs are separated by "; ".
func (n *Network) Describe() string {
	if n.NeuronCount() > DescribeLimit {
		return TooLargeToDescribe
	}

	exprs := make([]string, n.Layers[0])
	for i := range exprs {
		exprs[i] = fmt.Sprintf("x%d", i)
	}

	for l := 1; l < len(n.Layers); l++ {
		next := make([]string, n.Layers[l])
		for j := range next {
			var b strings.Builder
			b.WriteString(n.activation.Name)
			b.WriteByte('(')
			b.WriteString(formatTerm(n.Bias(l, j)))
			for i, in := range exprs {
				fmt.Fprintf(&b, " %+.4g*%s", n.Weight(l, j, i), in)
			}
			b.WriteByte(')')
			next[j] = b.String()
		}
		exprs = next
	}

	parts := make([]string, len(exprs))
	for j, e := range exprs {
		parts[j] = fmt.Sprintf("y%d = %s", j, e)
	}
	return strings.Join(parts, "; ")
}

func formatTerm(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
