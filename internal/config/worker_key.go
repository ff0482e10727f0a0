package config

type WorkerKeyStruct struct {
	OrphanBlobQueue string
}

var WorkerKey = &WorkerKeyStruct{
	OrphanBlobQueue: "orphan_blob_queue",
}
