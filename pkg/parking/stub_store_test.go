package parking

import (
	"context"
	"sort"
	"testing"
	"time"
)

// stubStore is an in-memory Store for service tests. Transactions are not
// rolled back; tests that exercise rollback semantics live in the gormstore
// package.
type stubStore struct {
	clients     map[string]Client
	vehicles    map[string]Vehicle
	lots        map[string]ParkingLot
	spots       map[string]Spot
	contracts   map[string]Contract
	payments    map[string]Payment
	penalties   map[string]Penalty
	checkpoints map[string]Checkpoint
	scans       map[string]Scan

	takenIdentities map[string]bool

	withTxError         error
	getVehicleError     error
	reserveSpotError    error
	createContractError error
	createPaymentError  error
	identityExistsError error
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		clients:         map[string]Client{},
		vehicles:        map[string]Vehicle{},
		lots:            map[string]ParkingLot{},
		spots:           map[string]Spot{},
		contracts:       map[string]Contract{},
		payments:        map[string]Payment{},
		penalties:       map[string]Penalty{},
		checkpoints:     map[string]Checkpoint{},
		scans:           map[string]Scan{},
		takenIdentities: map[string]bool{},
	}
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	if store.withTxError != nil {
		return store.withTxError
	}
	return fn(ctx, store)
}

func (store *stubStore) IdentityExists(_ context.Context, _ IdentityKind, id string) (bool, error) {
	if store.identityExistsError != nil {
		return false, store.identityExistsError
	}
	if store.takenIdentities[id] {
		return true, nil
	}
	_, client := store.clients[id]
	_, contract := store.contracts[id]
	_, payment := store.payments[id]
	_, penalty := store.penalties[id]
	return client || contract || payment || penalty, nil
}

func (store *stubStore) CreateClient(_ context.Context, client Client) error {
	store.clients[client.ID.String()] = client
	return nil
}

func (store *stubStore) GetClient(_ context.Context, id ClientID) (Client, error) {
	client, found := store.clients[id.String()]
	if !found {
		return Client{}, ErrClientNotFound
	}
	return client, nil
}

func (store *stubStore) ClientByEmail(_ context.Context, email string) (Client, error) {
	for _, client := range store.clients {
		if client.Email == email {
			return client, nil
		}
	}
	return Client{}, ErrClientNotFound
}

func (store *stubStore) CreateVehicle(_ context.Context, vehicle Vehicle) error {
	store.vehicles[vehicle.Plate.String()] = vehicle
	return nil
}

func (store *stubStore) GetVehicle(_ context.Context, plate PlateNumber) (Vehicle, error) {
	if store.getVehicleError != nil {
		return Vehicle{}, store.getVehicleError
	}
	vehicle, found := store.vehicles[plate.String()]
	if !found {
		return Vehicle{}, ErrVehicleNotFound
	}
	return vehicle, nil
}

func (store *stubStore) ListVehiclesByClient(_ context.Context, owner ClientID) ([]Vehicle, error) {
	var vehicles []Vehicle
	for _, vehicle := range store.vehicles {
		if vehicle.Owner == owner {
			vehicles = append(vehicles, vehicle)
		}
	}
	return vehicles, nil
}

// DeleteVehicle mimics the storage cascade: contracts bound to the plate
// disappear with the vehicle.
func (store *stubStore) DeleteVehicle(_ context.Context, plate PlateNumber) error {
	if _, found := store.vehicles[plate.String()]; !found {
		return ErrVehicleNotFound
	}
	delete(store.vehicles, plate.String())
	for contractKey, contract := range store.contracts {
		if contract.Vehicle == plate {
			delete(store.contracts, contractKey)
		}
	}
	return nil
}

func (store *stubStore) ListLots(_ context.Context) ([]ParkingLot, error) {
	var lots []ParkingLot
	for _, lot := range store.lots {
		lots = append(lots, lot)
	}
	return lots, nil
}

func (store *stubStore) GetLot(_ context.Context, id LotID) (ParkingLot, error) {
	lot, found := store.lots[id.String()]
	if !found {
		return ParkingLot{}, ErrLotNotFound
	}
	return lot, nil
}

func (store *stubStore) GetSpot(_ context.Context, id SpotID) (Spot, error) {
	spot, found := store.spots[id.String()]
	if !found {
		return Spot{}, ErrSpotNotFound
	}
	return spot, nil
}

func (store *stubStore) ListSpots(_ context.Context) ([]Spot, error) {
	var spots []Spot
	for _, spot := range store.spots {
		spots = append(spots, spot)
	}
	return spots, nil
}

func (store *stubStore) ReserveSpot(_ context.Context, id SpotID) error {
	if store.reserveSpotError != nil {
		return store.reserveSpotError
	}
	spot, found := store.spots[id.String()]
	if !found {
		return ErrSpotNotFound
	}
	if !spot.Available {
		return ErrSpotUnavailable
	}
	spot.Available = false
	store.spots[id.String()] = spot
	return nil
}

func (store *stubStore) ReleaseSpot(_ context.Context, id SpotID) error {
	spot, found := store.spots[id.String()]
	if !found {
		return ErrSpotNotFound
	}
	spot.Available = true
	store.spots[id.String()] = spot
	return nil
}

func (store *stubStore) CountAvailable(_ context.Context, filter AvailabilityFilter) (int64, error) {
	var count int64
	for _, spot := range store.spots {
		if !spot.Available {
			continue
		}
		if filter.Lot != nil && spot.Lot != *filter.Lot {
			continue
		}
		if filter.Class != nil && spot.Class != *filter.Class {
			continue
		}
		count++
	}
	return count, nil
}

func (store *stubStore) CreateContract(_ context.Context, contract Contract) error {
	if store.createContractError != nil {
		return store.createContractError
	}
	if _, found := store.contracts[contract.ID.String()]; found {
		return ErrDuplicateIdentity
	}
	store.contracts[contract.ID.String()] = contract
	return nil
}

func (store *stubStore) GetContract(_ context.Context, id ContractID) (Contract, error) {
	contract, found := store.contracts[id.String()]
	if !found {
		return Contract{}, ErrContractNotFound
	}
	return contract, nil
}

func (store *stubStore) ListContractsByClient(_ context.Context, owner ClientID) ([]Contract, error) {
	var contracts []Contract
	for _, contract := range store.contracts {
		vehicle, found := store.vehicles[contract.Vehicle.String()]
		if found && vehicle.Owner == owner {
			contracts = append(contracts, contract)
		}
	}
	return contracts, nil
}

func (store *stubStore) ListContractsByVehicle(_ context.Context, plate PlateNumber) ([]Contract, error) {
	var contracts []Contract
	for _, contract := range store.contracts {
		if contract.Vehicle == plate {
			contracts = append(contracts, contract)
		}
	}
	return contracts, nil
}

func (store *stubStore) DeleteContract(_ context.Context, id ContractID) error {
	if _, found := store.contracts[id.String()]; !found {
		return ErrContractNotFound
	}
	delete(store.contracts, id.String())
	for paymentKey, payment := range store.payments {
		if payment.Contract == id {
			delete(store.payments, paymentKey)
		}
	}
	return nil
}

func (store *stubStore) CreatePayment(_ context.Context, payment Payment) error {
	if store.createPaymentError != nil {
		return store.createPaymentError
	}
	for _, existing := range store.payments {
		if existing.Contract == payment.Contract {
			return ErrAlreadyPaid
		}
	}
	if _, found := store.payments[payment.ID.String()]; found {
		return ErrDuplicateIdentity
	}
	store.payments[payment.ID.String()] = payment
	return nil
}

func (store *stubStore) PaymentByContract(_ context.Context, id ContractID) (Payment, error) {
	for _, payment := range store.payments {
		if payment.Contract == id {
			return payment, nil
		}
	}
	return Payment{}, ErrPaymentNotFound
}

func (store *stubStore) ListPaymentsByClient(_ context.Context, payer ClientID) ([]Payment, error) {
	var payments []Payment
	for _, payment := range store.payments {
		if payment.Client == payer {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

func (store *stubStore) CreatePenalty(_ context.Context, penalty Penalty) error {
	if _, found := store.penalties[penalty.ID.String()]; found {
		return ErrDuplicateIdentity
	}
	store.penalties[penalty.ID.String()] = penalty
	return nil
}

func (store *stubStore) ListPenaltiesByContract(_ context.Context, id ContractID) ([]Penalty, error) {
	var penalties []Penalty
	for _, penalty := range store.penalties {
		if penalty.Contract == id {
			penalties = append(penalties, penalty)
		}
	}
	return penalties, nil
}

func (store *stubStore) GetCheckpoint(_ context.Context, id CheckpointID) (Checkpoint, error) {
	checkpoint, found := store.checkpoints[id.String()]
	if !found {
		return Checkpoint{}, ErrCheckpointNotFound
	}
	return checkpoint, nil
}

func (store *stubStore) UpsertScan(_ context.Context, scan Scan) error {
	store.scans[scan.Contract.String()+"|"+scan.Checkpoint.String()] = scan
	return nil
}

func (store *stubStore) FindScan(_ context.Context, contract ContractID, checkpoint CheckpointID) (Scan, error) {
	scan, found := store.scans[contract.String()+"|"+checkpoint.String()]
	if !found {
		return Scan{}, ErrScanNotFound
	}
	return scan, nil
}

func (store *stubStore) ListScansByContract(_ context.Context, contract ContractID) ([]Scan, error) {
	var scans []Scan
	for _, scan := range store.scans {
		if scan.Contract == contract {
			scans = append(scans, scan)
		}
	}
	sort.Slice(scans, func(left, right int) bool {
		return scans[left].ScannedAt.Before(scans[right].ScannedAt)
	})
	return scans, nil
}

func fixedClock(test *testing.T) func() time.Time {
	test.Helper()
	moment := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return moment }
}

func sequentialGenerator(test *testing.T, store *stubStore) *IdentityGenerator {
	test.Helper()
	next := 0
	generator, err := NewIdentityGenerator(store, WithRandomSource(func(n int) int {
		next++
		return next % n
	}))
	if err != nil {
		test.Fatalf("generator: %v", err)
	}
	return generator
}

func mustNewService(test *testing.T, store *stubStore) *Service {
	test.Helper()
	service, err := NewService(store, fixedClock(test), WithIdentityGenerator(sequentialGenerator(test, store)))
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustClientID(test *testing.T, raw string) ClientID {
	test.Helper()
	id, err := NewClientID(raw)
	if err != nil {
		test.Fatalf("client id %q: %v", raw, err)
	}
	return id
}

func mustContractID(test *testing.T, raw string) ContractID {
	test.Helper()
	id, err := NewContractID(raw)
	if err != nil {
		test.Fatalf("contract id %q: %v", raw, err)
	}
	return id
}

func mustLotID(test *testing.T, raw string) LotID {
	test.Helper()
	id, err := NewLotID(raw)
	if err != nil {
		test.Fatalf("lot id %q: %v", raw, err)
	}
	return id
}

func mustSpotID(test *testing.T, raw string) SpotID {
	test.Helper()
	id, err := NewSpotID(raw)
	if err != nil {
		test.Fatalf("spot id %q: %v", raw, err)
	}
	return id
}

func mustCheckpointID(test *testing.T, raw string) CheckpointID {
	test.Helper()
	id, err := NewCheckpointID(raw)
	if err != nil {
		test.Fatalf("checkpoint id %q: %v", raw, err)
	}
	return id
}

func mustPlate(test *testing.T, raw string) PlateNumber {
	test.Helper()
	plate, err := NewPlateNumber(raw)
	if err != nil {
		test.Fatalf("plate %q: %v", raw, err)
	}
	return plate
}

func seedLotAndSpot(test *testing.T, store *stubStore, lotRaw string, spotRaw string, class VehicleClass) (LotID, SpotID) {
	test.Helper()
	lotID := mustLotID(test, lotRaw)
	spotID := mustSpotID(test, spotRaw)
	store.lots[lotID.String()] = ParkingLot{ID: lotID, Name: "lot " + lotRaw, Address: "1 rue du test", Capacity: 10}
	store.spots[spotID.String()] = Spot{ID: spotID, Lot: lotID, Available: true, Class: class}
	return lotID, spotID
}

func seedVehicle(test *testing.T, store *stubStore, plateRaw string, ownerRaw string) (PlateNumber, ClientID) {
	test.Helper()
	plate := mustPlate(test, plateRaw)
	owner := mustClientID(test, ownerRaw)
	store.vehicles[plate.String()] = Vehicle{Plate: plate, Owner: owner, Class: ClassCar, Model: "test model"}
	return plate, owner
}

func seedCheckpoint(test *testing.T, store *stubStore, idRaw string, lotRaw string, state CheckpointState) CheckpointID {
	test.Helper()
	id := mustCheckpointID(test, idRaw)
	store.checkpoints[id.String()] = Checkpoint{ID: id, Lot: mustLotID(test, lotRaw), Direction: DirectionEntry, State: state}
	return id
}
