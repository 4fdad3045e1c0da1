package objective_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"github.com/FrankErrickson/Utilitarianism/internal/objective"
	"github.com/FrankErrickson/Utilitarianism/internal/policy"
	"gonum.org/v1/gonum/mat"
)

var _ = Describe("Build", func() {
	var (
		backstop *mat.Dense
		rec      *factoryRecorder
	)

	BeforeEach(func() {
		backstop = mat.NewDense(4, 2, []float64{
			0, 0,
			10, 20,
			10, 20,
			8, 16,
		})
		rec = &factoryRecorder{}
	})

	It("creates exactly one model instance", func() {
		obj, err := objective.Build(objective.Utilitarian{}, model.Params{Rho: 0.03, Eta: 2}, backstop, rec.factory, nil)
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 5; i++ {
			_, err := obj.Evaluate(context.Background(), []float64{0.1, 0.2})
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(rec.built).To(HaveLen(1))
		Expect(obj.Model()).To(BeIdenticalTo(rec.built[0]))
		Expect(rec.built[0].runs).To(Equal(5))
		Expect(obj.Evaluations()).To(Equal(5))
	})

	It("honors caller discounting without Negishi weights", func() {
		_, err := objective.Build(objective.Utilitarian{}, model.Params{Rho: 0.03, Eta: 2}, backstop, rec.factory, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.built[0].params).To(Equal(model.Params{Rho: 0.03, Eta: 2}))
	})

	It("overrides caller discounting when Negishi weights are on", func() {
		obj, err := objective.Build(objective.CostMin{Theta: policy.DefaultTheta},
			model.Params{Rho: 0.03, Eta: 2, UseNegishi: true}, backstop, rec.factory, nil)
		Expect(err).NotTo(HaveOccurred())

		want := model.Params{Rho: 0.015, Eta: 1.5, UseNegishi: true}
		Expect(rec.built[0].params).To(Equal(want))
		Expect(obj.Params()).To(Equal(want))
	})

	It("surfaces factory failures", func() {
		rec.err = errors.New("calibration file missing")
		_, err := objective.Build(objective.Utilitarian{}, model.Params{Rho: 0.015, Eta: 1.5}, backstop, rec.factory, nil)
		Expect(err).To(MatchError(ContainSubstring("calibration file missing")))
	})

	Describe("cost minimization", func() {
		It("installs the translated tax path", func() {
			obj, err := objective.Build(objective.CostMin{Theta: policy.DefaultTheta}, model.Params{Rho: 0.015, Eta: 1.5}, backstop, rec.factory, nil)
			Expect(err).NotTo(HaveOccurred())

			w, err := obj.Evaluate(context.Background(), []float64{5})
			Expect(err).NotTo(HaveOccurred())

			installed := rec.built[0].installed[0]
			want, _ := policy.MitigationFromTax([]float64{5}, backstop, policy.DefaultTheta)
			Expect(mat.Equal(installed, want)).To(BeTrue())
			Expect(installed.At(1, 0)).To(BeNumerically("~", math.Pow(0.5, 1/1.8), 1e-12))
			Expect(w).To(BeNumerically("~", mat.Sum(want), 1e-12))
		})

		It("rejects taxes beyond the horizon", func() {
			obj, _ := objective.Build(objective.CostMin{Theta: policy.DefaultTheta}, model.Params{Rho: 0.015, Eta: 1.5}, backstop, rec.factory, nil)
			_, err := obj.Evaluate(context.Background(), []float64{1, 2, 3, 4})
			Expect(errors.Is(err, policy.ErrHorizon)).To(BeTrue())
			Expect(rec.built[0].runs).To(BeZero())
		})
	})

	Describe("utilitarian", func() {
		It("embeds the block between a zero base period and full decarbonization", func() {
			obj, err := objective.Build(objective.Utilitarian{}, model.Params{Rho: 0.015, Eta: 1.5}, backstop, rec.factory, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = obj.Evaluate(context.Background(), []float64{0.3, 0.7})
			Expect(err).NotTo(HaveOccurred())

			installed := rec.built[0].installed[0]
			Expect(installed.RawRowView(0)).To(Equal([]float64{0, 0}))
			Expect(installed.RawRowView(1)).To(Equal([]float64{0.3, 0.7}))
			Expect(installed.RawRowView(2)).To(Equal([]float64{1, 1}))
			Expect(installed.RawRowView(3)).To(Equal([]float64{1, 1}))
		})

		It("rejects vectors that do not reshape to whole periods", func() {
			obj, _ := objective.Build(objective.Utilitarian{}, model.Params{Rho: 0.015, Eta: 1.5}, backstop, rec.factory, nil)
			_, err := obj.Evaluate(context.Background(), []float64{0.3, 0.7, 0.1})
			Expect(errors.Is(err, policy.ErrDimension)).To(BeTrue())
		})
	})

	It("propagates model failures without a fallback welfare", func() {
		boom := errors.New("solver diverged")
		obj, _ := objective.Build(objective.Utilitarian{}, model.Params{Rho: 0.015, Eta: 1.5}, backstop, rec.factory, nil)
		rec.built[0].runErr = boom

		w, err := obj.Evaluate(context.Background(), []float64{0.5, 0.5})
		Expect(errors.Is(err, boom)).To(BeTrue())
		Expect(w).To(BeZero())

		var runErr *model.RunError
		Expect(errors.As(err, &runErr)).To(BeTrue())
		Expect(runErr.Op).To(Equal("run"))
	})

	It("stops on a canceled context", func() {
		obj, _ := objective.Build(objective.Utilitarian{}, model.Params{Rho: 0.015, Eta: 1.5}, backstop, rec.factory, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := obj.Evaluate(ctx, []float64{0.5, 0.5})
		Expect(err).To(MatchError(context.Canceled))
		Expect(rec.built[0].runs).To(BeZero())
	})
})

var _ = Describe("Regime", func() {
	backstop := mat.NewDense(4, 3, []float64{
		0, 0, 0,
		8, 3, 5,
		2, 9, 1,
		7, 7, 7,
	})

	DescribeTable("parses names",
		func(name string, want objective.Regime) {
			got, err := objective.ParseRegime(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("costmin", "costmin", objective.CostMin{Theta: policy.DefaultTheta}),
		Entry("dashed", "Cost-Min", objective.CostMin{Theta: policy.DefaultTheta}),
		Entry("utilitarian", "utilitarian", objective.Utilitarian{}),
	)

	It("rejects unknown names", func() {
		_, err := objective.ParseRegime("rawlsian")
		Expect(err).To(MatchError(ContainSubstring("unknown regime")))
	})

	It("bounds cost-min taxes by the period's highest backstop", func() {
		lo, hi, err := objective.CostMin{Theta: policy.DefaultTheta}.Bounds(2, backstop)
		Expect(err).NotTo(HaveOccurred())
		Expect(lo).To(Equal([]float64{0, 0}))
		Expect(hi).To(Equal([]float64{8, 9}))
		Expect(objective.CostMin{}.Dim(2, 3)).To(Equal(2))
	})

	It("bounds utilitarian rates to the unit box", func() {
		lo, hi, err := objective.Utilitarian{}.Bounds(2, backstop)
		Expect(err).NotTo(HaveOccurred())
		Expect(lo).To(HaveLen(6))
		Expect(hi).To(HaveEach(1.0))
		Expect(objective.Utilitarian{}.Dim(2, 3)).To(Equal(6))
	})

	It("rejects a horizon with no room after the base period", func() {
		_, _, err := objective.Utilitarian{}.Bounds(4, backstop)
		Expect(errors.Is(err, policy.ErrHorizon)).To(BeTrue())
		_, _, err = objective.CostMin{}.Bounds(0, backstop)
		Expect(errors.Is(err, policy.ErrHorizon)).To(BeTrue())
	})

	It("reports a uniform price for cost-min", func() {
		tax, prices, err := objective.CostMin{Theta: policy.DefaultTheta}.Prices([]float64{4, 6}, backstop, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(tax).To(Equal([]float64{0, 4, 6, 7}))
		Expect(prices.RawRowView(2)).To(Equal([]float64{6, 6, 6}))
	})
})
