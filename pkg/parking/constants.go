package parking

const (
	operationCreateContract    = "create_contract"
	operationTerminateContract = "terminate_contract"
	operationPay               = "pay"
	operationRegisterClient    = "register_client"
	operationAddVehicle        = "add_vehicle"
	operationRemoveVehicle     = "remove_vehicle"
	operationRecordScan        = "record_scan"
	operationAddPenalty        = "add_penalty"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	// Fallback tariffs applied when a contract omits pricing overrides.
	defaultMonthlyTariffCents AmountCents = 5000
	defaultHourlyTariffCents  AmountCents = 250

	// Bounded retries for inserts keyed by a generated identifier. The
	// storage uniqueness constraint decides races the pre-check misses.
	maxIdentityInsertAttempts = 3
)
