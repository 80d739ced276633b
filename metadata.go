package qmps

// AddMetadata records the configuration of the run and its metrics.
func (s *State) AddMetadata(result *ExperimentResult) {
	result.AddMetadata(keyTruncationThreshold, s.config.TruncationThreshold)
	result.AddMetadata(keyMaxBondDimension, s.config.MaxBondDimension)
	result.AddMetadata(keyChopThreshold, s.config.ChopThreshold)
	result.AddMetadata(keyParallelThreshold, s.config.ParallelThreshold)
	result.AddMetadata(keyThreads, s.config.Threads)
	result.AddMetadata("matrix_product_state_sample_measure_algorithm", s.config.SampleAlgorithm.String())
	result.AddMetadata("matrix_product_state_metrics", s.metrics.ExportMetrics())
}
