// Package model provides the data structures shared by the pipeline package and its options.
// It defines the descriptors of phases and steps, the error policy, strategy and outcome enums,
// and the hook interface implemented by pipeline options such as the measure and the drawer.
package model
