package nonplanar_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/nonplanar"
	"github.com/aretw0/nonplanar/pkg/transform"
)

// ExampleEngine_Reproject bends one move onto a 45° cone. The cone is a shear, so
// the extrusion stays the same.
func ExampleEngine_Reproject() {
	eng, err := nonplanar.New(nonplanar.WithTransform(transform.NewConical(45)))
	if err != nil {
		log.Fatal(err)
	}

	job, err := eng.Reproject(context.Background(), "G1 X3 Y4 Z0.2 E1 F900", nonplanar.MotionOptions{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(job.Output)
	// Output: G1 X3.000 Y4.000 Z5.200 E1.000000 F900
}

// ExampleEngine_Resegment splits a 3 mm move into 1 mm pieces.
func ExampleEngine_Resegment() {
	eng, err := nonplanar.New()
	if err != nil {
		log.Fatal(err)
	}

	job, err := eng.Resegment(context.Background(), "G1 X3 E0.3 F1200", 1, nonplanar.Selection{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(job.Output)
	// Output:
	// G1 X1.000 Y0.000 Z0.000 E0.100000 F1200
	// G1 X2.000 Y0.000 Z0.000 E0.100000
	// G1 X3.000 Y0.000 Z0.000 E0.100000
}
