package log

// FieldComponent stamps every record with the emitting component.
const FieldComponent = "component"

// Standard component names, used with SetupLogger and WithComponent.
const (
	ComponentApp       = "app"
	ComponentLedger    = "ledger"
	ComponentRecurring = "recurring"
	ComponentFX        = "fx"
	ComponentAuth      = "auth"
	ComponentClient    = "client"
	ComponentStorage   = "storage"
	ComponentNotify    = "notify"
	ComponentBackend   = "backend"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
)
