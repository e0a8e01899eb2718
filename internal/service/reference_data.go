package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/healthscore-analysis-server/internal/domain"
)

// ReferenceEntry pairs a reference range with the raw labels that resolve
// to it. Keywords are matched after normalization, so "Hemoglobin A1c",
// "hemoglobin-a1c" and "HEMOGLOBIN A1C" all hit the same entry.
type ReferenceEntry struct {
	domain.ReferenceRange `yaml:",inline"`
	Keywords              []string `yaml:"keywords"`
}

// RuleLibrary is the immutable configuration for the engine: the reference
// range table and the disease rule library. It is constructed once at
// startup, either from the compiled defaults or from a versioned YAML file,
// and never mutated afterwards.
type RuleLibrary struct {
	Version string               `yaml:"version"`
	Ranges  []ReferenceEntry     `yaml:"ranges"`
	Rules   []domain.DiseaseRule `yaml:"rules"`
}

// Validate checks every range and rule in the library.
func (l *RuleLibrary) Validate() error {
	if len(l.Ranges) == 0 {
		return fmt.Errorf("rule library validation: no reference ranges defined")
	}
	for i := range l.Ranges {
		if err := l.Ranges[i].ReferenceRange.Validate(); err != nil {
			return fmt.Errorf("rule library validation: %w", err)
		}
	}
	for i := range l.Rules {
		if err := l.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rule library validation: %w", err)
		}
	}
	return nil
}

// LoadRuleLibrary reads a versioned rule library from a YAML file.
func LoadRuleLibrary(path string) (*RuleLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule library: %w", err)
	}

	lib := &RuleLibrary{}
	if err := yaml.Unmarshal(data, lib); err != nil {
		return nil, fmt.Errorf("failed to parse rule library: %w", err)
	}

	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// DefaultRuleLibrary returns the compiled reference range and disease rule
// tables. Optimal bounds are the published target intervals; acceptable
// bounds extend them to the clinical action thresholds. A side with no
// acceptable bound treats the optimal bound as the hard bound.
func DefaultRuleLibrary() *RuleLibrary {
	f := domain.Float
	return &RuleLibrary{
		Version: "2024.1",
		Ranges: []ReferenceEntry{
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "glucose", Unit: "mg/dL",
					OptimalLow: f(70), OptimalHigh: f(100), AcceptableHigh: f(125),
					Display: "70-100",
				},
				Keywords: []string{"glucose", "blood glucose", "fasting glucose", "random glucose"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "hba1c", Unit: "%",
					OptimalLow: f(4.0), OptimalHigh: f(5.6), AcceptableHigh: f(6.4),
					Display: "4.0-5.6",
				},
				Keywords: []string{"hba1c", "hemoglobin a1c", "glycated hemoglobin", "a1c"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "total_cholesterol", Unit: "mg/dL",
					OptimalHigh: f(200), AcceptableHigh: f(239),
					Display: "<200",
				},
				Keywords: []string{"total cholesterol", "cholesterol total", "chol total", "tc", "cholesterol"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "ldl", Unit: "mg/dL",
					OptimalHigh: f(100), AcceptableHigh: f(159),
					Display: "<100",
				},
				Keywords: []string{"ldl", "ldl cholesterol", "low density lipoprotein", "bad cholesterol"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "hdl", Unit: "mg/dL", Sex: domain.MALE,
					OptimalLow: f(40), AcceptableLow: f(35),
					Display: ">40",
				},
				Keywords: []string{"hdl", "hdl cholesterol", "high density lipoprotein", "good cholesterol"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "hdl", Unit: "mg/dL", Sex: domain.FEMALE,
					OptimalLow: f(50), AcceptableLow: f(40),
					Display: ">50",
				},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "hemoglobin", Unit: "g/dL", Sex: domain.MALE,
					OptimalLow: f(13.5), OptimalHigh: f(18), AcceptableHigh: f(20),
					Display: "13.5-18",
				},
				Keywords: []string{"hemoglobin", "hgb", "hb", "haemoglobin"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "hemoglobin", Unit: "g/dL", Sex: domain.FEMALE,
					OptimalLow: f(12), OptimalHigh: f(16), AcceptableHigh: f(18),
					Display: "12-16",
				},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "hematocrit", Unit: "%",
					OptimalLow: f(36), OptimalHigh: f(50), AcceptableHigh: f(54),
					Display: "36-50",
				},
				Keywords: []string{"hematocrit", "hct", "packed cell volume", "pcv"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "tsh", Unit: "mIU/L",
					OptimalLow: f(0.4), OptimalHigh: f(4.0), AcceptableHigh: f(10.0),
					Display: "0.4-4.0",
				},
				Keywords: []string{"tsh", "thyroid stimulating hormone", "thyrotropin"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "vitamin_d", Unit: "ng/mL",
					OptimalLow: f(30), OptimalHigh: f(100), AcceptableLow: f(20), AcceptableHigh: f(150),
					Display: "30-100",
				},
				Keywords: []string{"vitamin d", "vit d", "25 hydroxyvitamin d", "25 oh d", "cholecalciferol"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "vitamin_b12", Unit: "pg/mL",
					OptimalLow: f(200), OptimalHigh: f(900), AcceptableHigh: f(1000),
					Display: "200-900",
				},
				Keywords: []string{"vitamin b12", "vit b12", "cobalamin", "b12", "b 12"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "vitamin_c", Unit: "mg/dL",
					OptimalLow: f(0.6), OptimalHigh: f(2.0), AcceptableHigh: f(3.0),
					Display: "0.6-2.0",
				},
				Keywords: []string{"vitamin c", "vit c", "ascorbic acid", "ascorbate"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "vitamin_a", Unit: "μg/dL",
					OptimalLow: f(20), OptimalHigh: f(60), AcceptableHigh: f(100),
					Display: "20-60",
				},
				Keywords: []string{"vitamin a", "vit a", "retinol", "beta carotene"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "systolic_bp", Unit: "mmHg",
					OptimalLow: f(90), OptimalHigh: f(120), AcceptableHigh: f(139),
					Display: "90-120",
				},
				Keywords: []string{"systolic", "systolic blood pressure", "sbp", "sys bp"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "diastolic_bp", Unit: "mmHg",
					OptimalLow: f(60), OptimalHigh: f(80), AcceptableHigh: f(89),
					Display: "60-80",
				},
				Keywords: []string{"diastolic", "diastolic blood pressure", "dbp", "dias bp"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "heart_rate", Unit: "bpm",
					OptimalLow: f(60), OptimalHigh: f(100), AcceptableHigh: f(120),
					Display: "60-100",
				},
				Keywords: []string{"heart rate", "pulse", "hr", "beats per minute", "bpm"},
			},
			{
				ReferenceRange: domain.ReferenceRange{
					Biomarker: "creatinine", Unit: "mg/dL",
					OptimalLow: f(0.6), OptimalHigh: f(1.3), AcceptableHigh: f(2.0),
					Display: "0.6-1.3",
				},
				Keywords: []string{"creatinine", "serum creatinine", "creat"},
			},
		},
		Rules: defaultDiseaseRules(),
	}
}

// defaultDiseaseRules returns the compiled disease rule library. Declaration
// order is the stable tie-break for detections of equal risk.
func defaultDiseaseRules() []domain.DiseaseRule {
	return []domain.DiseaseRule{
		{
			Key: "diabetes_type_2", Name: "Type 2 Diabetes",
			Logic: domain.LOGIC_ANY, Risk: domain.HIGH_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "glucose", Operator: domain.OP_GTE, Threshold: 126},
				{Biomarker: "hba1c", Operator: domain.OP_GTE, Threshold: 6.5},
			},
			Reasoning: "Elevated glucose and/or HbA1c levels indicate diabetes.",
			Symptoms: []string{
				"Increased thirst", "Frequent urination", "Fatigue", "Blurred vision",
				"Slow wound healing", "Unexplained weight loss",
			},
			Recommendations: []string{
				"Schedule an appointment with an endocrinologist",
				"Regular monitoring with your primary care physician",
				"Follow a low-carbohydrate diet",
				"Limit sugar and processed foods",
				"Engage in regular physical activity (150 minutes/week)",
				"Monitor blood glucose regularly",
			},
		},
		{
			Key: "prediabetes", Name: "Prediabetes",
			Logic: domain.LOGIC_ANY, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "glucose", Operator: domain.OP_BETWEEN, Low: 100, High: 125},
				{Biomarker: "hba1c", Operator: domain.OP_BETWEEN, Low: 5.7, High: 6.4},
			},
			Reasoning: "Blood sugar levels are higher than normal but not yet diabetic.",
			Symptoms: []string{
				"Mild fatigue", "Occasional increased thirst", "Slight weight changes", "Increased appetite",
			},
			Recommendations: []string{
				"Regular monitoring with your primary care physician",
				"Follow a low-carbohydrate diet",
				"Increase fiber intake",
				"Engage in regular physical activity (150 minutes/week)",
				"Maintain a healthy weight",
			},
		},
		{
			Key: "high_glucose", Name: "Elevated Blood Glucose",
			Logic: domain.LOGIC_ALL, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "glucose", Operator: domain.OP_BETWEEN, Low: 110, High: 125},
			},
			Reasoning: "Glucose levels are above normal range, indicating potential metabolic issues.",
			Symptoms: []string{
				"Mild fatigue", "Increased thirst", "Frequent urination", "Sugar cravings",
			},
		},
		{
			Key: "cardiovascular_risk", Name: "Cardiovascular Disease Risk",
			Logic: domain.LOGIC_ANY, Risk: domain.HIGH_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "total_cholesterol", Operator: domain.OP_GTE, Threshold: 240},
				{Biomarker: "ldl", Operator: domain.OP_GTE, Threshold: 160},
				{Biomarker: "hdl", Operator: domain.OP_LTE, Threshold: 35},
			},
			Reasoning: "Abnormal cholesterol levels significantly increase heart disease risk.",
			Symptoms: []string{
				"Chest pain", "Shortness of breath", "Fatigue", "Leg pain when walking", "Dizziness",
			},
			Recommendations: []string{
				"Consult with a cardiologist",
				"Discuss statin therapy with your doctor",
				"Adopt a Mediterranean or DASH diet",
				"Reduce saturated and trans fats",
				"Regular aerobic exercise",
				"Quit smoking if applicable",
			},
		},
		{
			Key: "moderate_cardiovascular_risk", Name: "Moderate Cardiovascular Risk",
			Logic: domain.LOGIC_ANY, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "total_cholesterol", Operator: domain.OP_BETWEEN, Low: 200, High: 239},
				{Biomarker: "ldl", Operator: domain.OP_BETWEEN, Low: 130, High: 159},
				{Biomarker: "hdl", Operator: domain.OP_BETWEEN, Low: 35, High: 45},
			},
			Reasoning: "Borderline cholesterol levels warrant monitoring and lifestyle changes.",
			Symptoms: []string{
				"Mild chest discomfort", "Occasional fatigue", "Exercise intolerance", "Mild shortness of breath",
			},
			Recommendations: []string{
				"Regular blood pressure monitoring",
				"Reduce saturated and trans fats",
				"Increase omega-3 fatty acids",
				"Regular aerobic exercise",
			},
		},
		{
			Key: "high_cholesterol", Name: "High Cholesterol",
			Logic: domain.LOGIC_ALL, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "total_cholesterol", Operator: domain.OP_GTE, Threshold: 200},
			},
			Reasoning: "Total cholesterol above recommended levels increases cardiovascular risk.",
			Symptoms: []string{
				"No obvious symptoms", "Potential fatigue", "Chest tightness during exercise",
			},
		},
		{
			Key: "iron_deficiency_anemia", Name: "Iron Deficiency Anemia",
			Logic: domain.LOGIC_ANY, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "hemoglobin", Operator: domain.OP_LT, Threshold: 12},
				{Biomarker: "hematocrit", Operator: domain.OP_LT, Threshold: 36},
			},
			Reasoning: "Low hemoglobin and hematocrit levels suggest iron deficiency anemia.",
			Symptoms: []string{
				"Fatigue", "Weakness", "Pale skin", "Cold hands and feet", "Restless legs", "Brittle nails",
			},
			Recommendations: []string{
				"See a hematologist for further evaluation",
				"Investigate underlying causes of iron deficiency",
				"Increase iron-rich foods (lean meats, spinach, beans)",
				"Combine iron foods with vitamin C sources",
				"Adequate rest and sleep",
			},
		},
		{
			Key: "mild_anemia", Name: "Mild Anemia",
			Logic: domain.LOGIC_ANY, Risk: domain.LOW_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "hemoglobin", Operator: domain.OP_BETWEEN, Low: 12, High: 13.5},
				{Biomarker: "hematocrit", Operator: domain.OP_BETWEEN, Low: 36, High: 40},
			},
			Reasoning: "Hemoglobin levels are on the lower end of normal range.",
			Symptoms: []string{
				"Mild fatigue", "Occasional weakness", "Slight pale appearance",
			},
			Recommendations: []string{
				"Regular follow-up blood tests",
				"Increase iron-rich foods (lean meats, spinach, beans)",
			},
		},
		{
			Key: "hypothyroidism", Name: "Hypothyroidism",
			Logic: domain.LOGIC_ALL, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "tsh", Operator: domain.OP_GT, Threshold: 4.0},
			},
			Reasoning: "Elevated TSH levels indicate an underactive thyroid gland.",
			Symptoms: []string{
				"Fatigue", "Weight gain", "Cold sensitivity", "Dry skin", "Hair loss", "Depression", "Constipation",
			},
			Recommendations: []string{
				"Consult with an endocrinologist",
				"Regular thyroid function monitoring",
				"Ensure adequate iodine intake",
				"Manage stress levels",
			},
		},
		{
			Key: "borderline_hypothyroidism", Name: "Borderline Hypothyroidism",
			Logic: domain.LOGIC_ALL, Risk: domain.LOW_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "tsh", Operator: domain.OP_BETWEEN, Low: 3.0, High: 4.0},
			},
			Reasoning: "TSH levels are in the upper normal range, may indicate early thyroid dysfunction.",
			Symptoms: []string{
				"Mild fatigue", "Slight weight gain", "Mild cold sensitivity",
			},
			Recommendations: []string{
				"Regular thyroid function monitoring",
				"Monitor symptoms",
			},
		},
		{
			Key: "hyperthyroidism", Name: "Hyperthyroidism",
			Logic: domain.LOGIC_ALL, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "tsh", Operator: domain.OP_LT, Threshold: 0.4},
			},
			Reasoning: "Low TSH levels indicate an overactive thyroid gland.",
			Symptoms: []string{
				"Weight loss", "Rapid heartbeat", "Nervousness", "Sweating", "Heat sensitivity", "Irritability",
			},
			Recommendations: []string{
				"Consult with an endocrinologist",
				"Regular thyroid function monitoring",
				"Discuss medication options",
			},
		},
		{
			Key: "metabolic_syndrome_risk", Name: "Metabolic Syndrome Risk",
			Logic: domain.LOGIC_ALL, Risk: domain.HIGH_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "glucose", Operator: domain.OP_GTE, Threshold: 100},
				{Biomarker: "hdl", Operator: domain.OP_LTE, Threshold: 50},
				{Biomarker: "total_cholesterol", Operator: domain.OP_GTE, Threshold: 200},
			},
			Reasoning: "Combination of elevated glucose, low HDL, and high cholesterol suggests metabolic syndrome.",
			Symptoms: []string{
				"Abdominal weight gain", "Fatigue", "Increased thirst", "High blood pressure symptoms",
			},
		},
		{
			Key: "vitamin_d_deficiency", Name: "Vitamin D Deficiency",
			Logic: domain.LOGIC_ALL, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "vitamin_d", Operator: domain.OP_LT, Threshold: 20},
			},
			Reasoning: "Severely low vitamin D levels increase risk of bone diseases and immune dysfunction.",
			Symptoms: []string{
				"Bone pain", "Muscle weakness", "Frequent infections", "Fatigue", "Depression", "Hair loss",
			},
		},
		{
			Key: "vitamin_d_insufficiency", Name: "Vitamin D Insufficiency",
			Logic: domain.LOGIC_ALL, Risk: domain.LOW_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "vitamin_d", Operator: domain.OP_BETWEEN, Low: 20, High: 29},
			},
			Reasoning: "Suboptimal vitamin D levels may compromise bone health and immune function.",
			Symptoms: []string{
				"Mild fatigue", "Occasional muscle aches", "Susceptibility to colds",
			},
		},
		{
			Key: "vitamin_b12_deficiency", Name: "Vitamin B12 Deficiency",
			Logic: domain.LOGIC_ALL, Risk: domain.HIGH_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "vitamin_b12", Operator: domain.OP_LT, Threshold: 200},
			},
			Reasoning: "B12 deficiency can cause serious neurological damage and pernicious anemia.",
			Symptoms: []string{
				"Extreme fatigue", "Memory problems", "Confusion", "Tingling in hands/feet",
				"Balance issues", "Pale skin",
			},
		},
		{
			Key: "low_vitamin_c", Name: "Vitamin C Deficiency",
			Logic: domain.LOGIC_ALL, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "vitamin_c", Operator: domain.OP_LT, Threshold: 0.6},
			},
			Reasoning: "Low vitamin C increases risk of scurvy and compromises immune function.",
			Symptoms: []string{
				"Easy bruising", "Slow wound healing", "Joint pain", "Tooth loss", "Bleeding gums",
			},
		},
		{
			Key: "hypertension_stage_1", Name: "Stage 1 Hypertension",
			Logic: domain.LOGIC_ANY, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "systolic_bp", Operator: domain.OP_BETWEEN, Low: 130, High: 139},
				{Biomarker: "diastolic_bp", Operator: domain.OP_BETWEEN, Low: 80, High: 89},
			},
			Reasoning: "Blood pressure is elevated and requires lifestyle modifications.",
			Symptoms: []string{
				"Headaches", "Dizziness", "Shortness of breath", "Nosebleeds", "Flushing",
			},
			Recommendations: []string{
				"Regular blood pressure monitoring",
				"Limit sodium intake",
				"Regular aerobic exercise",
			},
		},
		{
			Key: "hypertension_stage_2", Name: "Stage 2 Hypertension",
			Logic: domain.LOGIC_ANY, Risk: domain.HIGH_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "systolic_bp", Operator: domain.OP_GTE, Threshold: 140},
				{Biomarker: "diastolic_bp", Operator: domain.OP_GTE, Threshold: 90},
			},
			Reasoning: "Significantly elevated blood pressure requires immediate medical attention.",
			Symptoms: []string{
				"Severe headaches", "Chest pain", "Vision problems", "Difficulty breathing", "Irregular heartbeat",
			},
			Recommendations: []string{
				"Seek prompt medical evaluation",
				"Regular blood pressure monitoring",
				"Limit sodium intake",
			},
		},
		{
			Key: "hypotension", Name: "Low Blood Pressure (Hypotension)",
			Logic: domain.LOGIC_ANY, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "systolic_bp", Operator: domain.OP_LT, Threshold: 90},
				{Biomarker: "diastolic_bp", Operator: domain.OP_LT, Threshold: 60},
			},
			Reasoning: "Low blood pressure may cause inadequate blood flow to organs.",
			Symptoms: []string{
				"Dizziness", "Fainting", "Fatigue", "Nausea", "Cold/clammy skin", "Blurred vision",
			},
		},
		{
			Key: "tachycardia", Name: "Tachycardia (Rapid Heart Rate)",
			Logic: domain.LOGIC_ALL, Risk: domain.MEDIUM_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "heart_rate", Operator: domain.OP_GT, Threshold: 100},
			},
			Reasoning: "Elevated resting heart rate may indicate cardiovascular stress or other conditions.",
			Symptoms: []string{
				"Palpitations", "Shortness of breath", "Dizziness", "Chest pain", "Fatigue",
			},
		},
		{
			Key: "bradycardia", Name: "Bradycardia (Slow Heart Rate)",
			Logic: domain.LOGIC_ALL, Risk: domain.LOW_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "heart_rate", Operator: domain.OP_LT, Threshold: 60},
			},
			Reasoning: "Low heart rate may be normal for athletes or indicate cardiac conduction issues.",
			Symptoms: []string{
				"Fatigue", "Dizziness", "Weakness", "Confusion", "Fainting spells",
			},
		},
		{
			Key: "kidney_dysfunction", Name: "Kidney Dysfunction",
			Logic: domain.LOGIC_ALL, Risk: domain.HIGH_RISK,
			Predicates: []domain.RulePredicate{
				{Biomarker: "creatinine", Operator: domain.OP_GT, Threshold: 1.3},
			},
			Reasoning: "Elevated creatinine indicates reduced kidney function.",
			Symptoms: []string{
				"Decreased urination", "Swelling in legs/ankles", "Fatigue", "Nausea", "Confusion",
			},
		},
	}
}
