package bake

var GlobalSize = globalSize
